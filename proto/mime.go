package proto

import "path"

const (
	TypeUnknown = "application/octet-stream"
	TypeHTML    = "text/html"
	TypeCSS     = "text/css"
	TypeJS      = "text/javascript"
	TypeGIF     = "image/gif"
	TypeJPEG    = "image/jpeg"
	TypePNG     = "image/png"
	TypeSVG     = "image/svg+xml"
)

// Extensions are matched exactly, case included.
var contentTypes = map[string]string{
	".html": TypeHTML,
	".htm":  TypeHTML,
	".css":  TypeCSS,
	".js":   TypeJS,
	".gif":  TypeGIF,
	".jpg":  TypeJPEG,
	".jpeg": TypeJPEG,
	".png":  TypePNG,
	".svg":  TypeSVG,
	".xml":  TypeSVG,
}

// ContentType maps the extension of name to its MIME type.
func ContentType(name string) string {
	if t, ok := contentTypes[path.Ext(name)]; ok {
		return t
	}
	return TypeUnknown
}
