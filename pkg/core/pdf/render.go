package pdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

var (
	pdfiumPool     pdfium.Pool
	pdfiumInstance pdfium.Pdfium
	pdfiumOnce     sync.Once
	pdfiumInitErr  error
	pdfiumMu       sync.Mutex
)

func renderer() (pdfium.Pdfium, error) {
	pdfiumOnce.Do(func() {
		pool, err := webassembly.Init(webassembly.Config{
			MinIdle:  1,
			MaxIdle:  1,
			MaxTotal: 1,
		})
		if err != nil {
			pdfiumInitErr = fmt.Errorf("failed to init pdfium: %w", err)
			return
		}
		pdfiumPool = pool
		instance, err := pool.GetInstance(time.Second * 30)
		if err != nil {
			pdfiumInitErr = fmt.Errorf("failed to get pdfium instance: %w", err)
			return
		}
		pdfiumInstance = instance
	})
	return pdfiumInstance, pdfiumInitErr
}

// RenderPage rasterises a zero-based page at the given DPI. The shared
// pdfium instance is single-threaded, so renders are serialised; distinct
// documents can still be analysed concurrently around this call.
func RenderPage(path string, pageIdx int, dpi int) (image.Image, error) {
	instance, err := renderer()
	if err != nil {
		return nil, err
	}

	pdfiumMu.Lock()
	defer pdfiumMu.Unlock()

	doc, err := instance.OpenDocument(&requests.OpenDocument{FilePath: &path})
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s for rendering: %w", path, err)
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})

	rendered, err := instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: dpi,
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: doc.Document,
				Index:    pageIdx,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d of %s: %w", pageIdx, path, err)
	}
	return rendered.Result.Image, nil
}

// RenderPageBase64 rasterises a page and returns it as a base64 PNG for
// vision prompts.
func RenderPageBase64(path string, pageIdx int, dpi int) (string, error) {
	img, err := RenderPage(path, pageIdx, dpi)
	if err != nil {
		return "", err
	}
	return EncodePNGBase64(img)
}

// EncodePNGBase64 encodes an image as base64 PNG without a data-URL prefix.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
