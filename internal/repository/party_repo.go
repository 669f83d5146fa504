package repository

import (
	"context"

	"invoicetool/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PartyRepository stores the two parties of an invoice: issuing organizations
// and their customers.
type PartyRepository interface {
	CreateOrganization(ctx context.Context, o *model.Organization) error
	FindOrganization(ctx context.Context, id uuid.UUID) (*model.Organization, error)
	CreateCustomer(ctx context.Context, c *model.Customer) error
	FindCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	ListCustomers(ctx context.Context, orgID uuid.UUID) ([]model.Customer, error)
}

type partyRepo struct{ db *gorm.DB }

func NewPartyRepository(db *gorm.DB) PartyRepository { return &partyRepo{db: db} }

func (r *partyRepo) CreateOrganization(ctx context.Context, o *model.Organization) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *partyRepo) FindOrganization(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	var o model.Organization
	err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error
	return &o, err
}

func (r *partyRepo) CreateCustomer(ctx context.Context, c *model.Customer) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *partyRepo) FindCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	return &c, err
}

func (r *partyRepo) ListCustomers(ctx context.Context, orgID uuid.UUID) ([]model.Customer, error) {
	var customers []model.Customer
	err := r.db.WithContext(ctx).Where("organization_id = ?", orgID).Order("name ASC").Find(&customers).Error
	return customers, err
}
