package student

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/unireg/core"
)

type Student struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	EnrollmentNo string    `json:"enrollment_no"`
	Email        string    `json:"email"`
	Address      string    `json:"address"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (s *Student) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (s *Student) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(s.PasswordHash, []byte(pwd))
}

// NewStudent contains information needed to create a new Student account.
type NewStudent struct {
	Name         string `json:"name" form:"name" validate:"required,notblank"`
	EnrollmentNo string `json:"enrollment_no" form:"enrollment_no" validate:"required,notblank"`
	Email        string `json:"email" form:"email" validate:"required,notblank,email"`
	Address      string `json:"address" form:"address" validate:"required,notblank"`
	Password     string `json:"password" form:"password" validate:"required,notblank"`
}

// Clean trims every field but the password and lowers the email.
func (ns *NewStudent) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.EnrollmentNo = core.CleanString(ns.EnrollmentNo)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Address = core.CleanString(ns.Address)
}

// GetFilter selects a single Student; the first non-empty field wins.
type GetFilter struct {
	ID           string
	Email        string
	EnrollmentNo string
}
