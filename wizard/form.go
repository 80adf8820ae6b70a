package wizard

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"pg-backend/models"
	"pg-backend/utils"
)

// Form holds every value collected across the seven steps.
type Form struct {
	// step 1
	FirstName     string      `json:"firstName" validate:"max=100"`
	LastName      string      `json:"lastName" validate:"max=100"`
	DateOfBirth   *utils.Date `json:"dateOfBirth"`
	Gender        string      `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	MaritalStatus string      `json:"maritalStatus" validate:"omitempty,oneof=SINGLE MARRIED DIVORCED WIDOWED"`

	// step 2
	Mobile       string `json:"mobile" validate:"max=20"`
	Email        string `json:"email" validate:"max=150"`
	AddressLine1 string `json:"addressLine1" validate:"max=255"`
	AddressLine2 string `json:"addressLine2" validate:"max=255"`
	City         string `json:"city" validate:"max=100"`
	State        string `json:"state" validate:"max=100"`
	Pincode      string `json:"pincode"`

	// step 3
	Qualification string `json:"qualification" validate:"max=150"`
	Institution   string `json:"institution" validate:"max=150"`
	Occupation    string `json:"occupation" validate:"max=150"`
	EmployerName  string `json:"employerName" validate:"max=150"`
	WorkAddress   string `json:"workAddress"`

	// step 4
	PropertyID uint   `json:"propertyId"`
	Floor      *int   `json:"floor" validate:"omitempty,min=0"`
	RoomNumber string `json:"roomNumber" validate:"max=50"`
	RoomType   string `json:"roomType" validate:"omitempty,oneof=SINGLE DOUBLE TRIPLE FOUR FIVE OTHER"`

	// step 5
	MonthlyRent   decimal.Decimal `json:"monthlyRent"`
	Deposit       decimal.Decimal `json:"deposit"`
	PaymentMethod string          `json:"paymentMethod" validate:"omitempty,oneof=CASH UPI BANK_TRANSFER CARD CHEQUE"`
	RentDueDate   *utils.Date     `json:"rentDueDate"`
	LeaseStart    *utils.Date     `json:"leaseStart"`
	LeaseEnd      *utils.Date     `json:"leaseEnd"`

	// step 6
	EmergencyContacts []models.EmergencyContact `json:"emergencyContacts"`

	// step 7
	Declaration bool   `json:"declaration"`
	Status      string `json:"status" validate:"omitempty,oneof=PENDING ACTIVE INACTIVE EVICTED"`
}

var formValidate = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// SchemaErrors runs the struct-tag rules on the whole form.
func SchemaErrors(f Form) []string {
	err := formValidate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			out = append(out, fmt.Sprintf("%s: failed '%s=%s' validation", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		out = append(out, fmt.Sprintf("%s: failed '%s' validation", fe.Field(), fe.Tag()))
	}
	return out
}

// Room returns the selected room, or nil when the floor is missing.
func (f Form) Room() *models.RoomRef {
	if f.Floor == nil {
		return nil
	}
	return &models.RoomRef{PropertyID: f.PropertyID, Floor: *f.Floor, RoomNumber: strings.TrimSpace(f.RoomNumber)}
}

// ApplyTo copies the form onto t. Age is derived from the date of birth.
func (f Form) ApplyTo(t *models.Tenant, now time.Time) {
	t.FirstName = strings.TrimSpace(f.FirstName)
	t.LastName = strings.TrimSpace(f.LastName)
	t.DateOfBirth = f.DateOfBirth.Ptr()
	t.Age = 0
	if t.DateOfBirth != nil {
		t.Age = AgeOn(*t.DateOfBirth, now)
	}
	t.Gender = f.Gender
	t.MaritalStatus = f.MaritalStatus

	t.Mobile = strings.TrimSpace(f.Mobile)
	t.Email = strings.TrimSpace(f.Email)
	t.AddressLine1 = strings.TrimSpace(f.AddressLine1)
	t.AddressLine2 = strings.TrimSpace(f.AddressLine2)
	t.City = strings.TrimSpace(f.City)
	t.State = strings.TrimSpace(f.State)
	t.Pincode = strings.TrimSpace(f.Pincode)

	t.Qualification = f.Qualification
	t.Institution = f.Institution
	t.Occupation = f.Occupation
	t.EmployerName = f.EmployerName
	t.WorkAddress = f.WorkAddress

	t.PropertyID = f.PropertyID
	if f.Floor != nil {
		t.Floor = *f.Floor
	}
	t.RoomNumber = strings.TrimSpace(f.RoomNumber)
	t.RoomType = f.RoomType

	t.MonthlyRent = f.MonthlyRent
	t.Deposit = f.Deposit
	t.PaymentMethod = f.PaymentMethod
	t.RentDueDate = f.RentDueDate.Ptr()
	t.LeaseStart = f.LeaseStart.Ptr()
	t.LeaseEnd = f.LeaseEnd.Ptr()

	t.SetContactList(f.EmergencyContacts)
	t.Declaration = f.Declaration
	if f.Status != "" {
		t.Status = models.TenantStatus(f.Status)
	}
}

// FormFromTenant prefills the wizard for editing an existing tenant.
func FormFromTenant(t *models.Tenant) Form {
	floor := t.Floor
	return Form{
		FirstName:         t.FirstName,
		LastName:          t.LastName,
		DateOfBirth:       utils.DateFromPtr(t.DateOfBirth),
		Gender:            t.Gender,
		MaritalStatus:     t.MaritalStatus,
		Mobile:            t.Mobile,
		Email:             t.Email,
		AddressLine1:      t.AddressLine1,
		AddressLine2:      t.AddressLine2,
		City:              t.City,
		State:             t.State,
		Pincode:           t.Pincode,
		Qualification:     t.Qualification,
		Institution:       t.Institution,
		Occupation:        t.Occupation,
		EmployerName:      t.EmployerName,
		WorkAddress:       t.WorkAddress,
		PropertyID:        t.PropertyID,
		Floor:             &floor,
		RoomNumber:        t.RoomNumber,
		RoomType:          t.RoomType,
		MonthlyRent:       t.MonthlyRent,
		Deposit:           t.Deposit,
		PaymentMethod:     t.PaymentMethod,
		RentDueDate:       utils.DateFromPtr(t.RentDueDate),
		LeaseStart:        utils.DateFromPtr(t.LeaseStart),
		LeaseEnd:          utils.DateFromPtr(t.LeaseEnd),
		EmergencyContacts: t.ContactList(),
		Declaration:       t.Declaration,
		Status:            string(t.Status),
	}
}

// AgeOn returns completed years between dob and now.
func AgeOn(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
