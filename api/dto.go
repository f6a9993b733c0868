/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

CONVENTIONS:
  - snake_case JSON field names
  - Dates as YYYY-MM-DD, timestamps as RFC3339
  - Amounts as JSON numbers (cent-aligned floats)
  - Months as YYYY-MM query params

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: PolicyJSON, reused directly as the policy payload
*/
package api

// =============================================================================
// HOUSEHOLDS AND MEMBERS
// =============================================================================

// HouseholdDTO represents a household in API responses.
type HouseholdDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateHouseholdRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// MemberDTO represents a household member in API responses.
type MemberDTO struct {
	ID            string  `json:"id"`
	HouseholdID   string  `json:"household_id"`
	Name          string  `json:"name"`
	Email         string  `json:"email,omitempty"`
	MonthlyIncome float64 `json:"monthly_income,omitempty"`
	Weight        float64 `json:"weight,omitempty"`
}

type CreateMemberRequest struct {
	ID            string  `json:"id,omitempty"`
	Name          string  `json:"name"`
	Email         string  `json:"email,omitempty"`
	MonthlyIncome float64 `json:"monthly_income,omitempty"`
	Weight        float64 `json:"weight,omitempty"`
}

// =============================================================================
// TRANSACTIONS AND SPLITS
// =============================================================================

type TransactionDTO struct {
	ID         string     `json:"id"`
	ExternalID string     `json:"external_id,omitempty"`
	PayerID    string     `json:"payer_id"`
	Amount     float64    `json:"amount"`
	Vendor     string     `json:"vendor,omitempty"`
	Category   string     `json:"category,omitempty"`
	Date       string     `json:"date"`
	Pending    bool       `json:"pending"`
	Transfer   bool       `json:"transfer"`
	Personal   bool       `json:"personal"`
	SplitDone  bool       `json:"split_done"`
	Splits     []EntryDTO `json:"splits,omitempty"`
}

// PatchTransactionRequest carries a partial update. Nil fields are left
// untouched; any change queues the transaction for recompute.
type PatchTransactionRequest struct {
	Category *string `json:"category,omitempty"`
	Personal *bool   `json:"personal,omitempty"`
	Transfer *bool   `json:"transfer,omitempty"`
	PayerID  *string `json:"payer_id,omitempty"`
}

type EntryDTO struct {
	PayerID   string  `json:"payer_id"`
	PayeeID   string  `json:"payee_id"`
	Amount    float64 `json:"amount"`
	Rationale string  `json:"rationale"`
}

// RecomputeRequest targets one transaction, or every unsplit transaction
// in the household when transaction_id is empty.
type RecomputeRequest struct {
	HouseholdID   string `json:"household_id"`
	TransactionID string `json:"transaction_id,omitempty"`
}

type RecomputeResponse struct {
	Recomputed int `json:"recomputed"`
	Entries    int `json:"entries"`
}

// =============================================================================
// SUMMARY AND SETTLEMENTS
// =============================================================================

type SummaryResponse struct {
	HouseholdID string          `json:"household_id"`
	Month       string          `json:"month,omitempty"`
	Balances    []NetDebtDTO    `json:"balances"`
	Member      *MemberTotalDTO `json:"member,omitempty"`
	Suggestions []SettlementDTO `json:"suggested_settlements"`
}

type NetDebtDTO struct {
	FromID string  `json:"from_id"`
	ToID   string  `json:"to_id"`
	Amount float64 `json:"amount"`
}

type MemberTotalDTO struct {
	MemberID  string  `json:"member_id"`
	YouOwe    float64 `json:"you_owe"`
	OwedToYou float64 `json:"owed_to_you"`
}

type SettlementDTO struct {
	ID        string  `json:"id,omitempty"`
	FromID    string  `json:"from_id"`
	ToID      string  `json:"to_id"`
	Amount    float64 `json:"amount"`
	Note      string  `json:"note,omitempty"`
	SettledAt string  `json:"settled_at,omitempty"`
}

type CreateSettlementRequest struct {
	FromID string  `json:"from_id"`
	ToID   string  `json:"to_id"`
	Amount float64 `json:"amount"`
	Note   string  `json:"note,omitempty"`
}

// =============================================================================
// RULES
// =============================================================================

type RuleDTO struct {
	ID               string `json:"id,omitempty"`
	MatchVendorILike string `json:"match_vendor_ilike"`
	CategoryID       string `json:"category_id,omitempty"`
	MarkAsPersonal   *bool  `json:"mark_as_personal,omitempty"`
	Priority         int    `json:"priority"`
	Active           bool   `json:"active"`
}

type ApplyRulesRequest struct {
	HouseholdID string `json:"household_id"`
}

type ApplyRulesResponse struct {
	Matched    int `json:"matched"`
	Recomputed int `json:"recomputed"`
}

// =============================================================================
// BUDGETS AND CATEGORIES
// =============================================================================

// BudgetDTO carries a monthly category budget with its spending progress.
type BudgetDTO struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	Month      string  `json:"month"`
	Limit      float64 `json:"limit"`
	Spent      float64 `json:"spent"`
	Remaining  float64 `json:"remaining"`
	Percentage float64 `json:"percentage"`
}

type CreateBudgetRequest struct {
	ID       string  `json:"id,omitempty"`
	Category string  `json:"category"`
	Month    string  `json:"month,omitempty"`
	Limit    float64 `json:"limit"`
}

type PatchBudgetRequest struct {
	Limit *float64 `json:"limit,omitempty"`
}

type CategoryDTO struct {
	ID              string `json:"id"`
	HouseholdID     string `json:"household_id,omitempty"`
	Name            string `json:"name"`
	Icon            string `json:"icon,omitempty"`
	Color           string `json:"color,omitempty"`
	PersonalDefault bool   `json:"personal_default"`
	System          bool   `json:"system"`
}

type CreateCategoryRequest struct {
	ID              string `json:"id,omitempty"`
	HouseholdID     string `json:"household_id"`
	Name            string `json:"name"`
	Icon            string `json:"icon,omitempty"`
	Color           string `json:"color,omitempty"`
	PersonalDefault bool   `json:"personal_default"`
}

// =============================================================================
// WEBHOOKS
// =============================================================================

// WebhookTransaction is one transaction in a bank feed delivery. Amounts
// arrive in bank convention (positive = money out) and are sign-flipped
// on ingestion.
type WebhookTransaction struct {
	ExternalID string  `json:"external_id"`
	PayerID    string  `json:"payer_id"`
	Amount     float64 `json:"amount"`
	Vendor     string  `json:"vendor,omitempty"`
	Category   string  `json:"category,omitempty"`
	Date       string  `json:"date"`
	Pending    bool    `json:"pending"`
}

type WebhookRequest struct {
	HouseholdID  string               `json:"household_id"`
	EventType    string               `json:"event_type"`
	Transactions []WebhookTransaction `json:"transactions"`
}

type WebhookResponse struct {
	Ingested int `json:"ingested"`
	Split    int `json:"split"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
