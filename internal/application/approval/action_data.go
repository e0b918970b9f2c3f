package approval

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jhoicas/inventario-eventos/internal/application/ports"
	"github.com/jhoicas/inventario-eventos/internal/domain"
)

// Objetos envoltorio que algunos clientes anidan alrededor de los datos reales.
var wrapperKeys = map[string]bool{
	"product": true,
	"route":   true,
	"data":    true,
	"payload": true,
	"request": true,
	"dto":     true,
	"model":   true,
}

const maxWrapperDepth = 4

var folder = cases.Fold()

// ActionData vista plana y normalizada del action data de una solicitud.
// Las claves se comparan sin distinguir camelCase, PascalCase ni snake_case.
type ActionData struct {
	fields map[string]json.RawMessage
}

// NormalizeActionData es el único punto que tolera las variantes de forma del action data:
// claves en cualquier convención, objetos envoltorio, JSON doblemente serializado, números como
// texto e imágenes en base64 con o sin prefijo data-URL.
func NormalizeActionData(raw []byte) (ActionData, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ActionData{}, fmt.Errorf("%w: action data vacío", domain.ErrInvalidInput)
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return ActionData{}, fmt.Errorf("%w: action data: %v", domain.ErrInvalidInput, err)
		}
		raw = bytes.TrimSpace([]byte(inner))
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ActionData{}, fmt.Errorf("%w: action data no es un objeto JSON: %v", domain.ErrInvalidInput, err)
	}
	d := ActionData{fields: make(map[string]json.RawMessage, len(obj))}
	d.merge(obj, 0)
	return d, nil
}

// merge copia las claves sin pisar las existentes (el nivel exterior gana) y luego baja a los envoltorios.
func (d ActionData) merge(obj map[string]json.RawMessage, depth int) {
	var nested []map[string]json.RawMessage
	for k, v := range obj {
		key := foldKey(k)
		if wrapperKeys[key] && depth < maxWrapperDepth {
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(v, &inner); err == nil && inner != nil {
				nested = append(nested, inner)
				continue
			}
		}
		if _, ok := d.fields[key]; !ok {
			d.fields[key] = v
		}
	}
	for _, inner := range nested {
		d.merge(inner, depth+1)
	}
}

func foldKey(k string) string {
	k = strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
	return folder.String(k)
}

func (d ActionData) lookup(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := d.fields[foldKey(k)]; ok && !isNull(v) {
			return v, true
		}
	}
	return nil, false
}

// Has indica si alguna de las claves está presente y no es null.
func (d ActionData) Has(keys ...string) bool {
	_, ok := d.lookup(keys...)
	return ok
}

// Int64 lee un entero aceptando número o texto numérico.
func (d ActionData) Int64(keys ...string) (int64, bool) {
	v, ok := d.lookup(keys...)
	if !ok {
		return 0, false
	}
	s := unquote(v)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return int64(f), true
	}
	return 0, false
}

// String lee un texto; números y booleanos se devuelven en su forma literal.
func (d ActionData) String(keys ...string) (string, bool) {
	v, ok := d.lookup(keys...)
	if !ok {
		return "", false
	}
	return unquote(v), true
}

// Image decodifica la imagen en base64 si viene incluida. Retorna nil sin imagen.
func (d ActionData) Image() (*ports.Image, error) {
	encoded, ok := d.String("imageBase64", "imageFile", "imageData", "image")
	if !ok || encoded == "" {
		return nil, nil
	}
	img := &ports.Image{}
	if rest, found := strings.CutPrefix(encoded, "data:"); found {
		meta, payload, ok := strings.Cut(rest, ",")
		if !ok {
			return nil, fmt.Errorf("%w: data-URL de imagen mal formada", domain.ErrInvalidInput)
		}
		img.ContentType, _, _ = strings.Cut(meta, ";")
		encoded = payload
	}
	data, err := decodeBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: imagen en base64 inválida", domain.ErrInvalidInput)
	}
	img.Data = data
	if name, ok := d.String("imageFileName", "imageName", "fileName"); ok {
		img.Filename = name
	}
	if ct, ok := d.String("imageContentType"); ok && ct != "" && img.ContentType == "" {
		img.ContentType = ct
	}
	if img.Filename == "" {
		img.Filename = "image"
	}
	return img, nil
}

// Decode llena dst (puntero a struct con etiquetas json) con los campos que coincidan,
// convirtiendo números y booleanos escritos como texto al tipo del campo.
func (d ActionData) Decode(dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("action data: destino debe ser puntero a struct")
	}
	rt := rv.Elem().Type()
	obj := make(map[string]json.RawMessage, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		name := jsonName(f)
		if name == "" {
			continue
		}
		v, ok := d.lookup(name)
		if !ok {
			continue
		}
		obj[name] = coerce(v, f.Type)
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("action data: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: action data: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func jsonName(f reflect.StructField) string {
	if !f.IsExported() {
		return ""
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name
}

func coerce(v json.RawMessage, t reflect.Type) json.RawMessage {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	isString := len(v) > 0 && v[0] == '"'
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if isString {
			s := strings.TrimSpace(unquote(v))
			if _, err := strconv.ParseFloat(s, 64); err == nil {
				return json.RawMessage(s)
			}
		}
	case reflect.Bool:
		if isString {
			if b, err := strconv.ParseBool(strings.TrimSpace(unquote(v))); err == nil {
				return json.RawMessage(strconv.FormatBool(b))
			}
		}
	case reflect.String:
		if !isString {
			quoted, _ := json.Marshal(string(v))
			return quoted
		}
	}
	return v
}

func unquote(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(s)
}
