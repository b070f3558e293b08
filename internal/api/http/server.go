package httpapi

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"

	"github.com/i474232898/weather-chat-assistant/internal/common"
)

//go:embed views/*.html
var viewsFS embed.FS

// NewViews returns the template engine over the embedded pages.
func NewViews() *html.Engine {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("title", common.Title)
	return engine
}

// NewApp builds the fiber app with the page renderer, the JSON codec and the
// centralized error response. Parsed values are copied out of the request
// buffer because the chat keeps them in session state and history.
func NewApp(name string) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               name,
		Immutable:             true,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		Views:                 NewViews(),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          errorHandler,
	})
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
