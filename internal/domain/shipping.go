package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	DefaultServiceCode = "usps_priority_mail"
	DefaultWeightUnit  = "ounce"
	DefaultCountryCode = "US"
	DefaultPostalCode  = "95128"
	DefaultState       = "TX"
)

type Address struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	AddressLine1  string `json:"address_line1"`
	CityLocality  string `json:"city_locality"`
	StateProvince string `json:"state_province"`
	PostalCode    string `json:"postal_code"`
	CountryCode   string `json:"country_code"`
}

type ShipFrom struct {
	CompanyName string `json:"company_name"`
	Address
}

type Weight struct {
	Value decimal.Decimal `json:"value"`
	Unit  string          `json:"unit"`
}

type Package struct {
	Weight Weight `json:"weight"`
}

type ShippingLabelRequest struct {
	ServiceCode string    `json:"service_code"`
	ShipTo      Address   `json:"ship_to"`
	ShipFrom    ShipFrom  `json:"ship_from"`
	Packages    []Package `json:"packages"`
}

// ApplyDefaults fills the optional fields carriers expect.
func (r *ShippingLabelRequest) ApplyDefaults() {
	if r.ServiceCode == "" {
		r.ServiceCode = DefaultServiceCode
	}
	defaultAddress(&r.ShipTo)
	defaultAddress(&r.ShipFrom.Address)
	for i := range r.Packages {
		if r.Packages[i].Weight.Unit == "" {
			r.Packages[i].Weight.Unit = DefaultWeightUnit
		}
	}
}

func defaultAddress(a *Address) {
	if a.StateProvince == "" {
		a.StateProvince = DefaultState
	}
	if a.PostalCode == "" {
		a.PostalCode = DefaultPostalCode
	}
	if a.CountryCode == "" {
		a.CountryCode = DefaultCountryCode
	}
}

func (r *ShippingLabelRequest) Validate() error {
	if r.ShipTo.Name == "" || r.ShipTo.AddressLine1 == "" || r.ShipTo.CityLocality == "" {
		return fmt.Errorf("%w: ship_to requires name, address_line1 and city_locality", ErrInvalidArgument)
	}
	if r.ShipFrom.Name == "" || r.ShipFrom.AddressLine1 == "" || r.ShipFrom.CityLocality == "" {
		return fmt.Errorf("%w: ship_from requires name, address_line1 and city_locality", ErrInvalidArgument)
	}
	if len(r.Packages) == 0 {
		return fmt.Errorf("%w: at least one package is required", ErrInvalidArgument)
	}
	for i, p := range r.Packages {
		if !p.Weight.Value.IsPositive() {
			return fmt.Errorf("%w: package %d weight must be positive", ErrInvalidArgument, i)
		}
	}
	return nil
}

type ShippingLabel struct {
	LabelURL       string `json:"shipping_label"`
	TrackingNumber string `json:"tracking_number"`
}
