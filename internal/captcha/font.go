package captcha

import (
	"os"
	"path/filepath"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

// LoadFont parses the TrueType font at path. A relative path is resolved
// against rootDir. An empty path selects the bundled Go Bold font.
func LoadFont(rootDir, path string) (*truetype.Font, error) {
	data := gobold.TTF
	if path != "" {
		if !filepath.IsAbs(path) && rootDir != "" {
			path = filepath.Join(rootDir, path)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, renderingFailure(err, "read font "+path)
		}
		data = b
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, renderingFailure(err, "parse font")
	}
	return f, nil
}

// newFace 与 gg.LoadFontFace 相同的参数，只是字体已经解析好了
func newFace(f *truetype.Font, points float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: points})
}
