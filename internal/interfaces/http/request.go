package http

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-eventos/internal/application/ports"
)

// imageFormField nombre de la parte de archivo en los endpoints multipart.
const imageFormField = "ImageFile"

const maxImageSize = 10 << 20

// paramID lee un id numérico de la ruta.
func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s inválido", name)
	}
	return id, nil
}

// formImage lee la imagen opcional del formulario. Sin parte ImageFile retorna nil.
func formImage(c *fiber.Ctx) (*ports.Image, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("formulario multipart inválido: %w", err)
	}
	files := form.File[imageFormField]
	if len(files) == 0 {
		return nil, nil
	}
	fh := files[0]
	if fh.Size > maxImageSize {
		return nil, fmt.Errorf("la imagen supera %d MB", maxImageSize>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
	if err != nil {
		return nil, err
	}
	return &ports.Image{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
