package wizard

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"pg-backend/models"
	"pg-backend/utils"
)

var (
	mobileCharsRegex = regexp.MustCompile(`^[0-9+\-\s()]+$`)
	pincodeRegex     = regexp.MustCompile(`^\d{6}$`)
)

const minTenantAge = 18

type stepValidator func(s State, env Env) []string

var validators = [TotalSteps]stepValidator{
	validatePersonal,
	validateContact,
	validateEmployment,
	validateRoom,
	validateFinancial,
	validateEmergencyContacts,
	validateReview,
}

// ValidateStep returns the messages for one step; an unknown step has none.
func ValidateStep(s State, step int, env Env) []string {
	if step < 1 || step > TotalSteps {
		return nil
	}
	return validators[step-1](s, env)
}

func blank(v string) bool {
	return strings.TrimSpace(v) == ""
}

func validatePersonal(s State, env Env) []string {
	f := s.Values
	var errs []string
	if blank(f.FirstName) {
		errs = append(errs, "First name is required")
	}
	if blank(f.LastName) {
		errs = append(errs, "Last name is required")
	}
	if f.DateOfBirth.Ptr() == nil {
		errs = append(errs, "Date of birth is required")
	} else if AgeOn(f.DateOfBirth.Time, env.now()) < minTenantAge {
		errs = append(errs, fmt.Sprintf("Tenant must be at least %d years old", minTenantAge))
	}
	if blank(f.Gender) {
		errs = append(errs, "Gender is required")
	}
	return errs
}

func validateContact(s State, _ Env) []string {
	f := s.Values
	var errs []string

	mobile := strings.TrimSpace(f.Mobile)
	if utils.CountDigits(mobile) < 10 {
		errs = append(errs, "Mobile number must have at least 10 digits")
	}
	if mobile != "" && !mobileCharsRegex.MatchString(mobile) {
		errs = append(errs, "Mobile number may only contain digits, spaces, +, - and parentheses")
	}
	if !utils.IsValidEmail(strings.TrimSpace(f.Email)) {
		errs = append(errs, "A valid email address is required")
	}
	if blank(f.AddressLine1) {
		errs = append(errs, "Address line 1 is required")
	}
	if blank(f.City) {
		errs = append(errs, "City is required")
	}
	if blank(f.State) {
		errs = append(errs, "State is required")
	}
	if !pincodeRegex.MatchString(strings.TrimSpace(f.Pincode)) {
		errs = append(errs, "Pincode must be exactly 6 digits")
	}
	return errs
}

// Education and employment are optional.
func validateEmployment(State, Env) []string {
	return nil
}

func validateRoom(s State, env Env) []string {
	f := s.Values
	var errs []string
	if f.PropertyID == 0 {
		errs = append(errs, "Property is required")
	}
	if f.Floor == nil {
		errs = append(errs, "Floor is required")
	}
	if blank(f.RoomNumber) {
		errs = append(errs, "Room number is required")
	}
	if blank(f.RoomType) {
		errs = append(errs, "Room type is required")
	}
	if len(errs) > 0 {
		return errs
	}
	if env.PropertyMissing {
		return []string{fmt.Sprintf("Property %d was not found", f.PropertyID)}
	}

	ix := env.Index
	if ix == nil || ix.PropertyID != f.PropertyID {
		return nil
	}
	room, ok := ix.Lookup(*f.Floor, f.RoomNumber)
	if !ok {
		return nil
	}

	keepsOwnRoom := s.Mode == ModeEdit && s.Original != nil && s.Original.Same(*f.Room())
	if !room.Selectable && !keepsOwnRoom {
		errs = append(errs, fmt.Sprintf("Room %s on floor %d is fully occupied", room.RoomNo, room.FloorNumber))
		return errs
	}
	if ix.PropertyType == models.PropertyTypePG && !keepsOwnRoom {
		switch {
		case room.Unconfigured:
			errs = append(errs, fmt.Sprintf("Room %s on floor %d has no bed configuration", room.RoomNo, room.FloorNumber))
		case room.Occupied >= room.Capacity:
			errs = append(errs, fmt.Sprintf("No beds available in room %s", room.RoomNo))
		}
	}
	return errs
}

func validateFinancial(s State, env Env) []string {
	f := s.Values
	var errs []string
	if !f.MonthlyRent.IsPositive() {
		errs = append(errs, "Monthly rent must be greater than 0")
	}
	if f.Deposit.IsNegative() {
		errs = append(errs, "Deposit cannot be negative")
	}
	if f.RentDueDate.Ptr() == nil {
		errs = append(errs, "Rent due date is required")
	}

	start, end := f.LeaseStart.Ptr(), f.LeaseEnd.Ptr()
	if start == nil {
		errs = append(errs, "Lease start date is required")
	}
	if end == nil {
		errs = append(errs, "Lease end date is required")
	}
	if start != nil && end != nil && !end.After(*start) {
		errs = append(errs, "Lease end date must be after the start date")
	}
	if start != nil && s.Mode == ModeCreate {
		today := utils.StartOfDay(env.now())
		startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, today.Location())
		if startDay.Before(today) {
			errs = append(errs, "Lease start date cannot be in the past")
		}
	}
	return errs
}

func validateEmergencyContacts(s State, _ Env) []string {
	contacts := s.Values.EmergencyContacts
	if len(contacts) == 0 {
		return []string{"At least one emergency contact is required"}
	}
	var errs []string
	for i, c := range contacts {
		n := i + 1
		if blank(c.Name) {
			errs = append(errs, fmt.Sprintf("Emergency contact %d: name is required", n))
		}
		if blank(c.Relation) {
			errs = append(errs, fmt.Sprintf("Emergency contact %d: relation is required", n))
		}
		if utils.CountDigits(c.ContactNumber) < 10 {
			errs = append(errs, fmt.Sprintf("Emergency contact %d: contact number must have at least 10 digits", n))
		}
	}
	return errs
}

func validateReview(s State, _ Env) []string {
	if !s.Values.Declaration {
		return []string{"You must accept the declaration"}
	}
	return nil
}
