package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TenantStatus string

const (
	TenantStatusPending  TenantStatus = "PENDING"
	TenantStatusActive   TenantStatus = "ACTIVE"
	TenantStatusInactive TenantStatus = "INACTIVE"
	TenantStatusEvicted  TenantStatus = "EVICTED"
)

type EmergencyContact struct {
	Name          string `json:"name"`
	Relation      string `json:"relation"`
	ContactNumber string `json:"contactNumber"`
}

// RoomRef points at one room of one property.
type RoomRef struct {
	PropertyID uint   `json:"propertyId"`
	Floor      int    `json:"floor"`
	RoomNumber string `json:"roomNumber"`
}

func (r RoomRef) Same(o RoomRef) bool {
	return r.PropertyID == o.PropertyID &&
		r.Floor == o.Floor &&
		strings.EqualFold(strings.TrimSpace(r.RoomNumber), strings.TrimSpace(o.RoomNumber))
}

type Tenant struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OwnerID uint `gorm:"index;column:owner_id" json:"ownerId"`

	FirstName     string     `gorm:"size:100" json:"firstName"`
	LastName      string     `gorm:"size:100" json:"lastName"`
	DateOfBirth   *time.Time `gorm:"column:date_of_birth" json:"dateOfBirth"`
	Age           int        `json:"age"`
	Gender        string     `gorm:"size:20" json:"gender"`
	MaritalStatus string     `gorm:"size:20;column:marital_status" json:"maritalStatus"`

	Mobile       string `gorm:"size:32" json:"mobile"`
	Email        string `gorm:"size:150" json:"email"`
	AddressLine1 string `gorm:"size:255;column:address_line1" json:"addressLine1"`
	AddressLine2 string `gorm:"size:255;column:address_line2" json:"addressLine2"`
	City         string `gorm:"size:100" json:"city"`
	State        string `gorm:"size:100" json:"state"`
	Pincode      string `gorm:"size:10" json:"pincode"`

	Qualification string `gorm:"size:150" json:"qualification,omitempty"`
	Institution   string `gorm:"size:150" json:"institution,omitempty"`
	Occupation    string `gorm:"size:150" json:"occupation,omitempty"`
	EmployerName  string `gorm:"size:150;column:employer_name" json:"employerName,omitempty"`
	WorkAddress   string `gorm:"type:text;column:work_address" json:"workAddress,omitempty"`

	PropertyID uint   `gorm:"index;column:property_id" json:"propertyId"`
	Floor      int    `json:"floor"`
	RoomNumber string `gorm:"size:50;column:room_number" json:"roomNumber"`
	RoomType   string `gorm:"size:32;column:room_type" json:"roomType"`

	MonthlyRent   decimal.Decimal `gorm:"type:decimal(12,2);column:monthly_rent" json:"monthlyRent"`
	Deposit       decimal.Decimal `gorm:"type:decimal(12,2)" json:"deposit"`
	PaymentMethod string          `gorm:"size:32;column:payment_method" json:"paymentMethod"`
	RentDueDate   *time.Time      `gorm:"column:rent_due_date" json:"rentDueDate"`
	LeaseStart    *time.Time      `gorm:"column:lease_start" json:"leaseStart"`
	LeaseEnd      *time.Time      `gorm:"column:lease_end" json:"leaseEnd"`

	EmergencyContacts datatypes.JSON `gorm:"column:emergency_contacts" json:"emergencyContacts"`

	Status      TenantStatus `gorm:"size:20;index" json:"status"`
	Declaration bool         `json:"declaration"`

	LedgerSynced    bool `gorm:"column:ledger_synced;default:false" json:"ledgerSynced"`
	OccupancySynced bool `gorm:"column:occupancy_synced;default:false" json:"occupancySynced"`

	SubmissionKey *string `gorm:"size:128;uniqueIndex;column:submission_key" json:"-"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Tenant) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(t.FirstName) + " " + strings.TrimSpace(t.LastName))
}

func (t *Tenant) Room() RoomRef {
	return RoomRef{PropertyID: t.PropertyID, Floor: t.Floor, RoomNumber: t.RoomNumber}
}

func (t *Tenant) ContactList() []EmergencyContact {
	if len(t.EmergencyContacts) == 0 {
		return nil
	}
	var out []EmergencyContact
	if err := json.Unmarshal(t.EmergencyContacts, &out); err != nil {
		return nil
	}
	return out
}

func (t *Tenant) SetContactList(list []EmergencyContact) {
	if list == nil {
		list = []EmergencyContact{}
	}
	b, _ := json.Marshal(list)
	t.EmergencyContacts = datatypes.JSON(b)
}
