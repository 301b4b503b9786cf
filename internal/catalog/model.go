package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        int64      `json:"id" db:"id"`
	ParentID  *int64     `json:"parent_id,omitempty" db:"parent_id"`
	Name      string     `json:"name" db:"name"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (c *Category) Deleted() bool {
	return c.DeletedAt != nil
}

type Product struct {
	ID          int64           `json:"id" db:"id"`
	CategoryID  int64           `json:"category_id" db:"category_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (p *Product) Deleted() bool {
	return p.DeletedAt != nil
}
