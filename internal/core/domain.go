package core

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"

	DefaultCategoryIcon   = "📁"
	DefaultCategoryColor  = "#6B7280"
	DefaultAlertThreshold = 80
	MaxDescriptionLength  = 500
)

type (
	Role string

	User struct {
		ID           string    `json:"id"`
		Email        string    `json:"email"`
		Name         string    `json:"name"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"created_at"`
	}

	Category struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Icon        string    `json:"icon"`
		Color       string    `json:"color"`
		IsIncome    bool      `json:"is_income"`
		UserID      string    `json:"user_id,omitempty"`
		HouseholdID string    `json:"household_id,omitempty"`
		IsDefault   bool      `json:"is_default"`
		CreatedAt   time.Time `json:"created_at"`
	}

	// Transaction amounts are never negative; whether a transaction is a
	// credit or a debit follows from its category.
	Transaction struct {
		ID          string    `json:"id"`
		Amount      Money     `json:"amount"`
		Description string    `json:"description,omitempty"`
		Date        Date      `json:"date"`
		CategoryID  string    `json:"category_id"`
		UserID      string    `json:"user_id"`
		HouseholdID string    `json:"household_id,omitempty"`
		IsShared    bool      `json:"is_shared"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`

		// Populated on reads.
		Category *Category `json:"category,omitempty"`
	}

	Budget struct {
		ID             string    `json:"id"`
		Amount         Money     `json:"amount"`
		Month          Date      `json:"month"`
		CategoryID     string    `json:"category_id"`
		UserID         string    `json:"user_id"`
		HouseholdID    string    `json:"household_id,omitempty"`
		AlertThreshold int       `json:"alert_threshold"`
		CreatedAt      time.Time `json:"created_at"`
		UpdatedAt      time.Time `json:"updated_at"`

		Category *Category `json:"category,omitempty"`
	}

	Household struct {
		ID         string            `json:"id"`
		Name       string            `json:"name"`
		OwnerID    string            `json:"owner_id"`
		InviteCode string            `json:"invite_code"`
		CreatedAt  time.Time         `json:"created_at"`
		Members    []HouseholdMember `json:"members,omitempty"`
	}

	HouseholdMember struct {
		HouseholdID string    `json:"household_id"`
		UserID      string    `json:"user_id"`
		Name        string    `json:"name"`
		Email       string    `json:"email"`
		Role        Role      `json:"role"`
		JoinedAt    time.Time `json:"joined_at"`
	}

	// Scope restricts reads to one user's records, plus the records of a
	// household when HouseholdID is set.
	Scope struct {
		UserID      string
		HouseholdID string
	}
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Normalize trims user input and fills in the default icon and color.
func (c *Category) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Icon = strings.TrimSpace(c.Icon)
	c.Color = strings.TrimSpace(c.Color)
	if c.Icon == "" {
		c.Icon = DefaultCategoryIcon
	}
	if c.Color == "" {
		c.Color = DefaultCategoryColor
	}
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return Invalidf("name must be at most 100 characters")
	}
	if c.Color != "" && !colorPattern.MatchString(c.Color) {
		return ErrInvalidColor
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if t.CategoryID == "" {
		return ErrEmptyCategory
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return Invalidf("description must be at most %d characters", MaxDescriptionLength)
	}
	return nil
}

func (b Budget) Validate() error {
	if b.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if b.Month.IsZero() {
		return ErrInvalidMonth
	}
	if b.CategoryID == "" {
		return ErrEmptyCategory
	}
	if b.AlertThreshold < 50 || b.AlertThreshold > 100 {
		return ErrInvalidThreshold
	}
	return nil
}

// DefaultCategories is the category set every new account starts with.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Hrana i piće", Icon: "🍔", Color: "#EF4444"},
		{Name: "Stanovanje", Icon: "🏠", Color: "#F97316"},
		{Name: "Transport", Icon: "🚗", Color: "#EAB308"},
		{Name: "Zdravlje", Icon: "💊", Color: "#22C55E"},
		{Name: "Zabava", Icon: "🎬", Color: "#3B82F6"},
		{Name: "Odeća", Icon: "👕", Color: "#8B5CF6"},
		{Name: "Računi", Icon: "📱", Color: "#EC4899"},
		{Name: "Edukacija", Icon: "🎓", Color: "#14B8A6"},
		{Name: "Putovanja", Icon: "✈️", Color: "#06B6D4"},
		{Name: "Ostalo", Icon: "🛒", Color: "#6B7280"},
		{Name: "Plata", Icon: "💰", Color: "#10B981", IsIncome: true},
		{Name: "Freelance", Icon: "💼", Color: "#059669", IsIncome: true},
		{Name: "Pokloni", Icon: "🎁", Color: "#34D399", IsIncome: true},
		{Name: "Investicije", Icon: "📈", Color: "#047857", IsIncome: true},
		{Name: "Ostali prihodi", Icon: "💵", Color: "#6EE7B7", IsIncome: true},
	}
}

// TruncateDescription cuts s to MaxDescriptionLength characters.
func TruncateDescription(s string) string {
	if utf8.RuneCountInString(s) <= MaxDescriptionLength {
		return s
	}
	return string([]rune(s)[:MaxDescriptionLength])
}
