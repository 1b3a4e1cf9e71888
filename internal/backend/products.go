package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-storefront/internal/domain/product"
)

var (
	_ product.Repository         = (*Client)(nil)
	_ product.CategoryRepository = (*Client)(nil)
)

const (
	productsPath   = "/products/api/productos/"
	categoriesPath = "/products/api/categorias/"
)

// List returns the whole catalog.
func (c *Client) List(ctx context.Context) ([]product.Product, error) {
	resp, err := c.call(ctx, c.http, http.MethodGet, productsPath, nil)
	if err != nil {
		return nil, err
	}
	return decodeProducts(resp.body)
}

// Create uploads a new product as multipart form data.
func (c *Client) Create(ctx context.Context, d product.Draft) (*product.Product, error) {
	body, contentType, err := encodeDraft(d)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, productsPath, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(c.http, req)
	if err != nil {
		return nil, err
	}
	p, err := decodeProduct(jx.DecodeBytes(resp.body))
	if err != nil {
		return nil, errors.Wrap(err, "decode created product")
	}
	return &p, nil
}

// ListCategories returns all product categories.
func (c *Client) ListCategories(ctx context.Context) ([]product.Category, error) {
	resp, err := c.call(ctx, c.http, http.MethodGet, categoriesPath, nil)
	if err != nil {
		return nil, err
	}
	return decodeCategories(resp.body)
}

// CreateCategory creates a category named name.
func (c *Client) CreateCategory(ctx context.Context, name string) (*product.Category, error) {
	resp, err := c.call(ctx, c.http, http.MethodPost, categoriesPath, encodeCategory(name))
	if err != nil {
		return nil, err
	}
	cat, err := decodeCategory(jx.DecodeBytes(resp.body))
	if err != nil {
		return nil, errors.Wrap(err, "decode created category")
	}
	return &cat, nil
}

func encodeDraft(d product.Draft) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{fieldProductName, d.Name},
		{fieldDescription, d.Description},
		{fieldCategory, d.CategoryID},
		{fieldPrice, d.Price},
		{fieldStock, d.Stock},
	}
	if d.SellerID != 0 {
		fields = append(fields, [2]string{fieldSeller, strconv.FormatInt(d.SellerID, 10)})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", errors.Wrapf(err, "write field %s", f[0])
		}
	}

	if img := d.Image; img != nil && len(img.Data) > 0 {
		contentType := img.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldImage, img.Filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", errors.Wrap(err, "create image part")
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", errors.Wrap(err, "write image")
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "close multipart")
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
