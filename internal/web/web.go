// Package web embeds the chat page.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var assets embed.FS

// Static 返回以 static/ 为根的页面资源
func Static() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Handler 提供页面静态资源
func Handler() http.Handler {
	return http.FileServerFS(Static())
}
