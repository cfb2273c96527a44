package tests

import (
	"time"
)

type Model struct {
	ID        uint
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User has many `Pets` (nullable foreign key) and `Accounts` (not null foreign key), one `Profile`
// and belongs to a `Company`. His pets have many `Toys` (not null foreign key).
type User struct {
	Model
	Name      string `validate:"required"`
	Age       uint
	Birthday  *time.Time
	Active    bool
	CompanyID *int
	Company   *Company
	Profile   *Profile
	Pets      []*Pet
	Accounts  []*Account
}

type Profile struct {
	Model
	UserID *uint
	Bio    string
}

type Pet struct {
	Model
	UserID *uint
	Name   string `validate:"required"`
	Tags   map[string]string
	Toys   []*Toy
}

type Toy struct {
	Model
	PetID uint   `gorm:"not null"`
	Name  string `validate:"required"`
}

type Account struct {
	Model
	UserID uint   `gorm:"not null"`
	Number string `validate:"required"`
}

type Company struct {
	ID   int
	Name string
}

// Shelter keeps its animals in a slice of values, which cannot be embedded dynamically
type Shelter struct {
	ID      uint
	Name    string
	Animals []Animal
}

type Animal struct {
	ID        uint
	ShelterID *uint
	Name      string
}
