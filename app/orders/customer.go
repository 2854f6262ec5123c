package orders

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrCompanyRequired = errors.New("company is required")
	ErrContactRequired = errors.New("contact is required")
	ErrEmptySelection  = errors.New("selection is empty")
)

const dateLayout = "2006-01-02"

// CustomerInfo is the ordering customer printed in the sheet's header block.
type CustomerInfo struct {
	Company      string `json:"company"`
	Contact      string `json:"contact"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	OrderDate    string `json:"orderDate"`
	DeliveryDate string `json:"deliveryDate"`
}

// Validate requires company and contact to be non-blank.
func (c CustomerInfo) Validate() error {
	if strings.TrimSpace(c.Company) == "" {
		return ErrCompanyRequired
	}
	if strings.TrimSpace(c.Contact) == "" {
		return ErrContactRequired
	}
	return nil
}

// withDefaults trims every field and fills an empty order date with today's date.
func (c CustomerInfo) withDefaults(now time.Time) CustomerInfo {
	out := CustomerInfo{
		Company:      strings.TrimSpace(c.Company),
		Contact:      strings.TrimSpace(c.Contact),
		Phone:        strings.TrimSpace(c.Phone),
		Email:        strings.TrimSpace(c.Email),
		OrderDate:    strings.TrimSpace(c.OrderDate),
		DeliveryDate: strings.TrimSpace(c.DeliveryDate),
	}
	if out.OrderDate == "" {
		out.OrderDate = now.Format(dateLayout)
	}
	return out
}

type headerField struct {
	label string
	value string
}

// headerFields lists the header block rows in print order.
func (c CustomerInfo) headerFields() []headerField {
	return []headerField{
		{"社名", c.Company},
		{"担当者名", c.Contact},
		{"連絡先", c.Phone},
		{"メールアドレス", c.Email},
		{"発注日", c.OrderDate},
		{"納品希望日", c.DeliveryDate},
	}
}
