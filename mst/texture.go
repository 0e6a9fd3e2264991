package mst

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Texture is an uncompressed or zlib compressed pixel buffer stored inside
// a material.
type Texture struct {
	Id         int32     `json:"id"`
	Name       string    `json:"name"`
	Size       [2]uint64 `json:"size"`
	Format     uint16    `json:"format"`
	Type       uint16    `json:"type"`
	Compressed uint16    `json:"compressed"`
	Data       []byte    `json:"-"`
	Repeated   bool      `json:"repeated"`
}

// Image output formats accepted by EncodeImage.
const (
	ImagePNG  = "png"
	ImageTGA  = "tga"
	ImageBMP  = "bmp"
	ImageTIFF = "tiff"
)

// ImageFormats lists the formats EncodeImage can write.
var ImageFormats = []string{ImagePNG, ImageTGA, ImageBMP, ImageTIFF}

func CompressImage(buf []byte) ([]byte, error) {
	var bf bytes.Buffer
	w := zlib.NewWriter(&bf)
	if _, err := w.Write(buf); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return bf.Bytes(), nil
}

func DecompressImage(src []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func pixelSize(format uint16) int {
	switch format {
	case TEXTURE_FORMAT_RGBA:
		return 4
	case TEXTURE_FORMAT_RGB:
		return 3
	case TEXTURE_FORMAT_R:
		return 1
	}
	return 0
}

// LoadTexture decodes tex into an image. With flipY the first stored row
// becomes the bottom row.
func LoadTexture(tex *Texture, flipY bool) (*image.NRGBA, error) {
	w := int(tex.Size[0])
	h := int(tex.Size[1])
	sz := pixelSize(tex.Format)
	if sz == 0 {
		return nil, fmt.Errorf("mst: texture %q: unsupported format %d", tex.Name, tex.Format)
	}
	data := tex.Data
	if tex.Compressed == TEXTURE_COMPRESSED_ZLIB {
		var err error
		if data, err = DecompressImage(data); err != nil {
			return nil, fmt.Errorf("mst: texture %q: %w", tex.Name, err)
		}
	}
	if len(data) < w*h*sz {
		return nil, fmt.Errorf("mst: texture %q: %d bytes for %dx%d pixels", tex.Name, len(data), w, h)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < h; i++ {
		y := i
		if flipY {
			y = h - i - 1
		}
		for j := 0; j < w; j++ {
			p := (i*w + j) * sz
			var c color.NRGBA
			switch sz {
			case 4:
				c = color.NRGBA{R: data[p], G: data[p+1], B: data[p+2], A: data[p+3]}
			case 3:
				c = color.NRGBA{R: data[p], G: data[p+1], B: data[p+2], A: 255}
			case 1:
				c = color.NRGBA{R: data[p], G: data[p], B: data[p], A: 255}
			}
			img.SetNRGBA(j, y, c)
		}
	}
	return img, nil
}

// DecodeImage reads an image in any format CreateTexture accepts, picked by
// the file extension of name. The tga package registers an empty signature
// that matches every input, so known formats never go through image.Decode.
func DecodeImage(r io.Reader, name string) (image.Image, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return png.Decode(r)
	case ".jpg", ".jpeg":
		return jpeg.Decode(r)
	case ".gif":
		return gif.Decode(r)
	case ".tga":
		return tga.Decode(r)
	case ".bmp":
		return bmp.Decode(r)
	case ".tif", ".tiff":
		return tiff.Decode(r)
	}
	img, _, err := image.Decode(r)
	return img, err
}

func CreateTexture(name string, repet bool) (*Texture, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := DecodeImage(f, name)
	if err != nil {
		return nil, fmt.Errorf("mst: decode %s: %w", name, err)
	}
	return CreateTextureFromImage(img, name, repet)
}

// CreateTextureFromImage stores img as a zlib compressed RGBA texture.
func CreateTextureFromImage(img image.Image, name string, repet bool) (*Texture, error) {
	bd := img.Bounds()
	buf := make([]byte, 0, bd.Dx()*bd.Dy()*4)
	for y := bd.Min.Y; y < bd.Max.Y; y++ {
		for x := bd.Min.X; x < bd.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			buf = append(buf, c.R, c.G, c.B, c.A)
		}
	}
	data, err := CompressImage(buf)
	if err != nil {
		return nil, err
	}
	_, fn := filepath.Split(name)
	return &Texture{
		Name:       fn,
		Size:       [2]uint64{uint64(bd.Dx()), uint64(bd.Dy())},
		Format:     TEXTURE_FORMAT_RGBA,
		Type:       TEXTURE_PIXEL_TYPE_UBYTE,
		Compressed: TEXTURE_COMPRESSED_ZLIB,
		Data:       data,
		Repeated:   repet,
	}, nil
}

// EncodeImage writes img in one of ImageFormats.
func EncodeImage(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case ImagePNG:
		return png.Encode(w, img)
	case ImageTGA:
		return tga.Encode(w, img)
	case ImageBMP:
		return bmp.Encode(w, img)
	case ImageTIFF, "tif":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("mst: unsupported image format %q", format)
}
