package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
)

// StaticFS holds the gauge page and its assets.
//
//go:embed static
var StaticFS embed.FS

// staticRoot is StaticFS rooted at static/. The embed is fixed at build time,
// so a bad directory is a build defect and fails at init.
var staticRoot = mustSub(StaticFS, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(fmt.Sprintf("web: embedded %s: %v", dir, err))
	}
	return sub
}

// SetupUIRoutes serves the embedded page. Unknown paths get index.html so
// the page can be reloaded from any URL. Must be registered after the API
// routes.
func SetupUIRoutes(app *fiber.App) {
	app.Use("/", filesystem.New(filesystem.Config{
		Root:         http.FS(staticRoot),
		Index:        "index.html",
		NotFoundFile: "index.html",
		MaxAge:       300,
	}))
}
