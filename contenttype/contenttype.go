// Package contenttype maps file extensions to MIME types.
//
// The table is fixed at build time. Lookups are exact and case sensitive:
// "JPG" is not "jpg".
package contenttype

import (
	"maps"
	"path"
	"slices"
	"strings"
)

var table = map[string]string{
	"html":  "text/html",
	"htm":   "text/html",
	"shtml": "text/html",
	"css":   "text/css",
	"xml":   "text/xml",
	"mml":   "text/mathml",
	"txt":   "text/plain",
	"jad":   "text/vnd.sun.j2me.app-descriptor",
	"wml":   "text/vnd.wap.wml",
	"htc":   "text/x-component",
	"eml":   "text/plain",
	"msg":   "text/plain",

	"gif":  "image/gif",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"wbmp": "image/vnd.wap.wbmp",
	"ico":  "image/x-icon",
	"jng":  "image/x-jng",
	"bmp":  "image/x-ms-bmp",
	"svg":  "image/svg+xml",

	"js":    "application/x-javascript",
	"atom":  "application/atom+xml",
	"rss":   "application/rss+xml",
	"json":  "application/json",
	"jar":   "application/java-archive",
	"war":   "application/java-archive",
	"ear":   "application/java-archive",
	"hqx":   "application/mac-binhex40",
	"doc":   "application/msword",
	"pdf":   "application/pdf",
	"ps":    "application/postscript",
	"eps":   "application/postscript",
	"ai":    "application/postscript",
	"rtf":   "application/rtf",
	"xls":   "application/vnd.ms-excel",
	"ppt":   "application/vnd.ms-powerpoint",
	"wmlc":  "application/vnd.wap.wmlc",
	"xhtml": "application/vnd.wap.xhtml+xml",
	"kml":   "application/vnd.google-earth.kml+xml",
	"kmz":   "application/vnd.google-earth.kmz",
	"docx":  "application/x-word",
	"xlsx":  "application/x-excel",
	"pptx":  "application/vnd.openxmlformats-officedocument.presentationml.presentation",

	"7z":      "application/x-7z-compressed",
	"cco":     "application/x-cocoa",
	"jardiff": "application/x-java-archive-diff",
	"jnlp":    "application/x-java-jnlp-file",
	"run":     "application/x-makeself",
	"pl":      "application/x-perl",
	"pm":      "application/x-perl",
	"prc":     "application/x-pilot",
	"pdb":     "application/x-pilot",
	"rar":     "application/x-rar-compressed",
	"rpm":     "application/x-redhat-package-manager",
	"sea":     "application/x-sea",
	"swf":     "application/x-shockwave-flash",
	"sit":     "application/x-stuffit",
	"tcl":     "application/x-tcl",
	"tk":      "application/x-tcl",
	"der":     "application/x-x509-ca-cert",
	"pem":     "application/x-x509-ca-cert",
	"crt":     "application/x-x509-ca-cert",
	"xpi":     "application/x-xpinstall",
	"zip":     "application/zip",

	"bin": "application/octet-stream",
	"exe": "application/octet-stream",
	"dll": "application/octet-stream",
	"deb": "application/octet-stream",
	"dmg": "application/octet-stream",
	"eot": "application/octet-stream",
	"iso": "application/octet-stream",
	"img": "application/octet-stream",
	"msi": "application/octet-stream",
	"msp": "application/octet-stream",
	"msm": "application/octet-stream",

	"mid":  "audio/midi",
	"midi": "audio/midi",
	"kar":  "audio/midi",
	"mp3":  "audio/mpeg",
	"ra":   "audio/x-realaudio",

	"3gpp": "video/3gpp",
	"3gp":  "video/3gpp",
	"mpeg": "video/mpeg",
	"mpg":  "video/mpeg",
	"mov":  "video/quicktime",
	"flv":  "video/x-flv",
	"mng":  "video/x-mng",
	"asx":  "video/x-ms-asf",
	"asf":  "video/x-ms-asf",
	"wmv":  "video/x-ms-wmv",
	"avi":  "video/x-msvideo",
}

// Lookup returns the MIME type registered for ext, without the leading dot.
func Lookup(ext string) (string, bool) {
	ct, ok := table[ext]
	return ct, ok
}

// Extension returns the lookup key for name: the text after the last dot of
// its base name. A name without a dot is its own key.
func Extension(name string) string {
	base := path.Base(name)
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		return base[i+1:]
	}
	return base
}

// ForFilename infers the MIME type of name from its extension. It returns ""
// for unknown extensions.
func ForFilename(name string) string {
	if name == "" {
		return ""
	}
	ct, _ := Lookup(Extension(name))
	return ct
}

// Extensions returns every registered extension, sorted.
func Extensions() []string {
	return slices.Sorted(maps.Keys(table))
}
