package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed index.html app.js
var assets embed.FS

// GetFileSystem returns an http.FileSystem serving the embedded page assets.
func GetFileSystem() http.FileSystem {
	return http.FS(assets)
}

// Index returns the embedded index page.
func Index() []byte {
	data, err := fs.ReadFile(assets, "index.html")
	if err != nil {
		// embedded at build time
		panic(err)
	}
	return data
}
