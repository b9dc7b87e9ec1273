package mls

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/hitoshi/estatecart/internal/model"
)

// selectFields は物件取得時に要求するフィールド。
var selectFields = strings.Join([]string{
	"ListingKey",
	"UnparsedAddress",
	"StreetNumber",
	"StreetName",
	"StreetSuffix",
	"UnitNumber",
	"City",
	"CityRegion",
	"StateOrProvince",
	"PostalCode",
	"Country",
	"PropertyType",
	"PropertySubType",
	"ListPrice",
	"BedroomsTotal",
	"BathroomsTotalInteger",
	"ParkingTotal",
	"LivingArea",
	"PublicRemarks",
	"ListingContractDate",
}, ",")

// Record はMLSのPropertyリソース1件を表す。
// MLSによって数値が文字列で返る場合があるため、数値項目は柔軟にデコードする。
type Record struct {
	ListingKey            string  `json:"ListingKey"`
	UnparsedAddress       string  `json:"UnparsedAddress"`
	StreetNumber          string  `json:"StreetNumber"`
	StreetName            string  `json:"StreetName"`
	StreetSuffix          string  `json:"StreetSuffix"`
	UnitNumber            string  `json:"UnitNumber"`
	City                  string  `json:"City"`
	CityRegion            string  `json:"CityRegion"`
	StateOrProvince       string  `json:"StateOrProvince"`
	PostalCode            string  `json:"PostalCode"`
	Country               string  `json:"Country"`
	PropertyType          string  `json:"PropertyType"`
	PropertySubType       string  `json:"PropertySubType"`
	ListPrice             *Number `json:"ListPrice"`
	BedroomsTotal         *Number `json:"BedroomsTotal"`
	BathroomsTotalInteger *Number `json:"BathroomsTotalInteger"`
	ParkingTotal          *Number `json:"ParkingTotal"`
	LivingArea            Text    `json:"LivingArea"`
	PublicRemarks         string  `json:"PublicRemarks"`
	ListingContractDate   string  `json:"ListingContractDate"`
}

// mediaRecord はMLSのMediaリソース1件を表す。
type mediaRecord struct {
	MediaURL string `json:"MediaURL"`
	Order    int    `json:"Order"`
}

// collection はODataのコレクションレスポンス。
type collection[T any] struct {
	Value []T `json:"value"`
}

// Number は数値または数値文字列をデコードする。
type Number float64

// UnmarshalJSON はJSONの数値、数値文字列、nullを受け付ける。
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = Number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// Text は文字列または数値を文字列としてデコードする。
type Text string

// UnmarshalJSON はJSONの文字列、数値、nullを受け付ける。
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(b)
	return nil
}

// Address は表示用の住所を組み立てる。
// UnparsedAddressがあればそれを使用し、無ければ番地・通り名・部屋番号から組み立てる。
func (r Record) Address() string {
	street := strings.TrimSpace(r.UnparsedAddress)
	if street == "" {
		street = joinNonEmpty(" ", r.StreetNumber, r.StreetName, r.StreetSuffix)
		if r.UnitNumber != "" && street != "" {
			street += " #" + r.UnitNumber
		}
		country := r.Country
		if country == "" {
			country = "CA"
		}
		return joinNonEmpty(", ", street, r.City, r.StateOrProvince, r.PostalCode, country)
	}
	return street
}

// ToProperty はMLSレコードをドメインモデルに変換する。
// 説明文のサニタイズとメディアの付与は呼び出し側で行う。
func (r Record) ToProperty() model.Property {
	p := model.Property{
		ID:           r.ListingKey,
		Address:      r.Address(),
		City:         r.City,
		CityRegion:   r.CityRegion,
		PropertyType: r.PropertyType,
		LivingArea:   string(r.LivingArea),
		Description:  r.PublicRemarks,
		ListedAt:     r.ListingContractDate,
		Media:        []string{},
	}
	if r.PropertySubType != "" {
		p.PropertyType = r.PropertySubType
	}
	if r.ListPrice != nil {
		v := float64(*r.ListPrice)
		p.ListPrice = &v
	}
	p.Bedrooms = r.BedroomsTotal.intPtr()
	p.Bathrooms = r.BathroomsTotalInteger.intPtr()
	p.ParkingSpaces = r.ParkingTotal.intPtr()
	return p
}

func (n *Number) intPtr() *int {
	if n == nil {
		return nil
	}
	v := int(math.Round(float64(*n)))
	return &v
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
