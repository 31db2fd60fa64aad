package users

import (
	"fmt"
	"strings"
)

type Hair struct {
	Color string `json:"color"`
	Type  string `json:"type"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Address struct {
	Address     string      `json:"address"`
	City        string      `json:"city"`
	State       string      `json:"state"`
	StateCode   string      `json:"stateCode"`
	PostalCode  string      `json:"postalCode"`
	Coordinates Coordinates `json:"coordinates"`
	Country     string      `json:"country"`
}

type Bank struct {
	CardExpire string `json:"cardExpire"`
	CardNumber string `json:"cardNumber"`
	CardType   string `json:"cardType"`
	Currency   string `json:"currency"`
	IBAN       string `json:"iban"`
}

type Company struct {
	Department string  `json:"department"`
	Name       string  `json:"name"`
	Title      string  `json:"title"`
	Address    Address `json:"address"`
}

type Crypto struct {
	Coin    string `json:"coin"`
	Wallet  string `json:"wallet"`
	Network string `json:"network"`
}

type User struct {
	ID         int     `json:"id"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	MaidenName string  `json:"maidenName"`
	Age        int     `json:"age"`
	Gender     string  `json:"gender"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	Username   string  `json:"username"`
	Password   string  `json:"password"`
	BirthDate  string  `json:"birthDate"`
	Image      string  `json:"image"`
	BloodGroup string  `json:"bloodGroup"`
	Height     float64 `json:"height"`
	Weight     float64 `json:"weight"`
	EyeColor   string  `json:"eyeColor"`
	Hair       Hair    `json:"hair"`
	IP         string  `json:"ip"`
	Address    Address `json:"address"`
	MacAddress string  `json:"macAddress"`
	University string  `json:"university"`
	Bank       Bank    `json:"bank"`
	Company    Company `json:"company"`
	EIN        string  `json:"ein"`
	SSN        string  `json:"ssn"`
	UserAgent  string  `json:"userAgent"`
	Crypto     Crypto  `json:"crypto"`
	Role       string  `json:"role"`
}

// FullName joins first and last name, skipping empty parts.
func (u User) FullName() string {
	return strings.TrimSpace(strings.Join([]string{u.FirstName, u.LastName}, " "))
}

// Handle is the username prefixed with @.
func (u User) Handle() string {
	if u.Username == "" {
		return ""
	}
	return "@" + u.Username
}

// Location is "City, Country" with missing parts dropped.
func (u User) Location() string {
	var parts []string
	for _, p := range []string{u.Address.City, u.Address.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (u User) String() string {
	return fmt.Sprintf("%d %s", u.ID, u.FullName())
}

// ListResponse is the envelope of every list endpoint.
type ListResponse struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
	Skip  int    `json:"skip"`
	Limit int    `json:"limit"`
}
