package ports

import "context"

// Image archivo recibido del cliente (multipart o base64 ya decodificado).
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Empty indica que no se envió imagen.
func (i *Image) Empty() bool { return i == nil || len(i.Data) == 0 }

// ImageStore almacén de imágenes. Save retorna la URL pública con la que se referencia el archivo.
// Delete sobre una URL inexistente no es error.
type ImageStore interface {
	Save(ctx context.Context, folder string, img *Image) (string, error)
	Delete(ctx context.Context, url string) error
}
