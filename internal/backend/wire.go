package backend

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/account"
	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/session"
)

// Backend field names for catalog records.
const (
	fieldProductID    = "id"
	fieldProductName  = "nombre_producto"
	fieldDescription  = "descripcion"
	fieldCategory     = "categoria"
	fieldPrice        = "precio"
	fieldStock        = "stock"
	fieldSeller       = "vendedor"
	fieldImage        = "imagen"
	fieldCategoryName = "nombre_categoria"
)

func decodeProducts(body []byte) ([]product.Product, error) {
	d := jx.DecodeBytes(body)
	products := make([]product.Product, 0)
	if err := d.Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return err
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case fieldProductID:
			p.ID, err = decodeInt(d)
		case fieldProductName:
			p.Name, err = decodeString(d)
		case fieldDescription:
			p.Description, err = decodeString(d)
		case fieldCategory:
			p.CategoryID, err = decodeInt(d)
		case fieldPrice:
			p.Price, err = decodeDecimal(d)
		case fieldStock:
			p.Stock, err = decodeInt(d)
		case fieldSeller:
			p.SellerID, err = decodeInt(d)
		case fieldImage:
			p.Image, err = decodeString(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	return p, err
}

func decodeCategories(body []byte) ([]product.Category, error) {
	d := jx.DecodeBytes(body)
	categories := make([]product.Category, 0)
	if err := d.Arr(func(d *jx.Decoder) error {
		c, err := decodeCategory(d)
		if err != nil {
			return err
		}
		categories = append(categories, c)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode categories")
	}
	return categories, nil
}

func decodeCategory(d *jx.Decoder) (product.Category, error) {
	var c product.Category
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			c.ID, err = decodeInt(d)
		case fieldCategoryName:
			c.Name, err = decodeString(d)
		default:
			return d.Skip()
		}
		return err
	})
	return c, err
}

// decodeLogin extracts the token pair from {"tokens": {"access", "refresh"}}.
func decodeLogin(body []byte) (session.Credentials, error) {
	var creds session.Credentials
	err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "tokens" {
			return d.Skip()
		}
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "access":
				creds.AccessToken, err = decodeString(d)
			case "refresh":
				creds.RefreshToken, err = decodeString(d)
			default:
				return d.Skip()
			}
			return err
		})
	})
	if err != nil {
		return session.Credentials{}, errors.Wrap(err, "decode login")
	}
	if creds.AccessToken == "" || creds.RefreshToken == "" {
		return session.Credentials{}, errors.New("login response carries no tokens")
	}
	return creds, nil
}

func decodeAccess(body []byte) (string, error) {
	var access string
	err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "access" {
			return d.Skip()
		}
		var err error
		access, err = decodeString(d)
		return err
	})
	if err != nil {
		return "", errors.Wrap(err, "decode refresh")
	}
	if access == "" {
		return "", errors.New("refresh response carries no access token")
	}
	return access, nil
}

// decodeProfile reads {"user": {"username", "email", "is_staff"}}.
func decodeProfile(body []byte) (*account.Profile, error) {
	var p account.Profile
	err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "user" {
			return d.Skip()
		}
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "username":
				p.Username, err = decodeString(d)
			case "email":
				p.Email, err = decodeString(d)
			case "is_staff":
				if d.Next() == jx.Null {
					return d.Null()
				}
				p.IsStaff, err = d.Bool()
			default:
				return d.Skip()
			}
			return err
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode profile")
	}
	return &p, nil
}

// decodeMessage pulls a human-readable message out of an error body. It
// understands {"message": ...}, {"detail": ...} and field validation maps
// such as {"precio": ["..."]}. Unparseable bodies yield "".
func decodeMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return ""
	}

	var message, detail, field string
	_ = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch d.Next() {
		case jx.String:
			s, err := d.Str()
			if err != nil {
				return err
			}
			switch string(key) {
			case "message":
				message = s
			case "detail":
				detail = s
			}
			return nil
		case jx.Array:
			name := string(key)
			return d.Arr(func(d *jx.Decoder) error {
				if field == "" && d.Next() == jx.String {
					s, err := d.Str()
					if err != nil {
						return err
					}
					field = fmt.Sprintf("%s: %s", name, s)
					return nil
				}
				return d.Skip()
			})
		default:
			return d.Skip()
		}
	})

	switch {
	case message != "":
		return message
	case detail != "":
		return detail
	default:
		return field
	}
}

func decodeString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func decodeInt(d *jx.Decoder) (int64, error) {
	if d.Next() == jx.Null {
		return 0, d.Null()
	}
	return d.Int64()
}

// decodeDecimal accepts both string ("10.50") and numeric (10.5) encodings.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch tt := d.Next(); tt {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	case jx.Null:
		return decimal.Zero, d.Null()
	default:
		return decimal.Zero, errors.Errorf("unexpected %s for decimal", tt)
	}
}

func encodeLogin(username, password string) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("username")
	e.Str(username)
	e.FieldStart("password")
	e.Str(password)
	e.ObjEnd()
	return e.Bytes()
}

func encodeRefresh(token string) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("refresh")
	e.Str(token)
	e.ObjEnd()
	return e.Bytes()
}

func encodeSignup(r account.Registration) []byte {
	var e jx.Encoder
	e.ObjStart()
	for _, f := range []struct{ name, value string }{
		{"username", r.Username},
		{"password1", r.Password1},
		{"password2", r.Password2},
		{"email", r.Email},
		{"first_name", r.FirstName},
		{"last_name", r.LastName},
		{"cedula", r.Cedula},
		{"direccion", r.Address},
		{"telefono", r.Phone},
	} {
		e.FieldStart(f.name)
		e.Str(f.value)
	}
	e.FieldStart("rol")
	e.ObjStart()
	e.FieldStart("nombre")
	e.Str(r.Role)
	e.ObjEnd()
	e.FieldStart("groups")
	e.ArrStart()
	for _, g := range r.Groups {
		e.Int64(g)
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

func encodePasswordChange(c account.PasswordChange) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("username")
	e.Str(c.Username)
	e.FieldStart("current_password")
	e.Str(c.CurrentPassword)
	e.FieldStart("new_password")
	e.Str(c.NewPassword)
	e.ObjEnd()
	return e.Bytes()
}

func encodeCategory(name string) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart(fieldCategoryName)
	e.Str(name)
	e.ObjEnd()
	return e.Bytes()
}
