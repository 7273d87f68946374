package banksdk

// ============================================================================
// Auth
// ============================================================================

// Roles carried in the "role" claim of an access token.
const (
	RoleAdmin = "ROLE_ADMIN"
	RoleUser  = "ROLE_USER"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login, register and refresh. Register returns
// no tokens: the account waits for an administrator to activate it.
type AuthResponse struct {
	AccessToken        string `json:"accessToken,omitempty"`
	RefreshToken       string `json:"refreshToken,omitempty"`
	TokenType          string `json:"tokenType,omitempty"`
	ExpiresIn          int64  `json:"expiresIn,omitempty"`
	Username           string `json:"username,omitempty"`
	Email              string `json:"email,omitempty"`
	Role               string `json:"role,omitempty"`
	MustChangePassword bool   `json:"mustChangePassword,omitempty"`
	Pending            bool   `json:"pending,omitempty"`
	Message            string `json:"message,omitempty"`
}

// UserInfo is what the client can tell about the signed-in user from the
// access token alone.
type UserInfo struct {
	Username  string
	Role      string
	ExpiresAt int64 // seconds since epoch
}

// MessageResponse is the acknowledgement body of deletes and activations.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ============================================================================
// Paging
// ============================================================================

// Page is a slice of a server-side list.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	PageNumber    int   `json:"pageNumber"`
	PageSize      int   `json:"pageSize"`
	TotalPages    int   `json:"totalPages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}

// EmptyPage is the fallback used when a list cannot be loaded.
func EmptyPage[T any]() *Page[T] {
	return &Page[T]{Content: []T{}, First: true, Last: true}
}

// ============================================================================
// Accounts
// ============================================================================

type AccountType string

const (
	AccountCurrent AccountType = "COURANT"
	AccountSavings AccountType = "EPARGNE"
)

// Account is a bank account. Number (numeroCompte, an IBAN) identifies it.
type Account struct {
	ID           int64       `json:"id"`
	Number       string      `json:"numeroCompte"`
	Type         AccountType `json:"typeCompte"`
	Balance      float64     `json:"solde"`
	Active       bool        `json:"actif"`
	CreatedAt    string      `json:"dateCreation,omitempty"`
	ClientID     int64       `json:"clientId,omitempty"`
	ClientName   string      `json:"clientNomComplet,omitempty"`
	Overdraft    *float64    `json:"decouvertAutorise,omitempty"`
	InterestRate *float64    `json:"tauxInteret,omitempty"`
}

// AccountRequest opens an account for a client.
type AccountRequest struct {
	ClientID int64       `json:"clientId"`
	Type     AccountType `json:"typeCompte"`
}

// ============================================================================
// Clients
// ============================================================================

type Sex string

const (
	SexMale   Sex = "MASCULIN"
	SexFemale Sex = "FEMININ"
)

type Client struct {
	ID           int64     `json:"id"`
	LastName     string    `json:"nom"`
	FirstName    string    `json:"prenom"`
	FullName     string    `json:"nomComplet,omitempty"`
	BirthDate    string    `json:"dateNaissance,omitempty"`
	Sex          Sex       `json:"sexe,omitempty"`
	Address      string    `json:"adresse,omitempty"`
	Phone        string    `json:"telephone,omitempty"`
	Email        string    `json:"courriel,omitempty"`
	Nationality  string    `json:"nationalite,omitempty"`
	CreatedAt    string    `json:"createdAt,omitempty"`
	AccountCount int       `json:"nombreComptes,omitempty"`
	Accounts     []Account `json:"comptes,omitempty"`
	Enabled      *bool     `json:"enabled,omitempty"`
	UserID       *int64    `json:"userId,omitempty"`
}

// ClientRequest creates or replaces a client. BirthDate is YYYY-MM-DD.
type ClientRequest struct {
	LastName    string `json:"nom"`
	FirstName   string `json:"prenom"`
	BirthDate   string `json:"dateNaissance"`
	Sex         Sex    `json:"sexe"`
	Address     string `json:"adresse,omitempty"`
	Phone       string `json:"telephone,omitempty"`
	Email       string `json:"courriel,omitempty"`
	Nationality string `json:"nationalite,omitempty"`
}

// ProfileUpdateRequest is what a client may change about themselves.
type ProfileUpdateRequest struct {
	Phone   string `json:"telephone,omitempty"`
	Address string `json:"adresse,omitempty"`
	Avatar  string `json:"avatar,omitempty"`
}

// ============================================================================
// Transactions
// ============================================================================

type TransactionType string

const (
	TxDeposit    TransactionType = "DEPOT"
	TxWithdrawal TransactionType = "RETRAIT"
	TxTransfer   TransactionType = "VIREMENT"
)

// Transaction is a completed operation. The post-operation balances are
// optional: when present the client patches its cache instead of reloading.
type Transaction struct {
	ID                      int64           `json:"id"`
	Type                    TransactionType `json:"type"`
	Amount                  float64         `json:"montant"`
	Date                    string          `json:"dateTransaction,omitempty"`
	Description             string          `json:"description,omitempty"`
	AccountNumber           string          `json:"numeroCompte,omitempty"`
	DestinationAccount      string          `json:"compteDestination,omitempty"`
	BalanceBefore           *float64        `json:"soldeAvant,omitempty"`
	BalanceAfter            *float64        `json:"soldeApres,omitempty"`
	DestinationBalanceAfter *float64        `json:"soldeApresDestination,omitempty"`
}

// OperationRequest is the body of deposit and withdraw.
type OperationRequest struct {
	Amount      float64 `json:"montant"`
	Description string  `json:"description,omitempty"`
}

// TransferRequest moves Amount from Source to Destination.
type TransferRequest struct {
	Source      string  `json:"compteSource"`
	Destination string  `json:"compteDestination"`
	Amount      float64 `json:"montant"`
	Description string  `json:"description,omitempty"`
}

// ============================================================================
// Dashboard and users
// ============================================================================

type DashboardStats struct {
	TotalClients      int64   `json:"totalClients"`
	TotalAccounts     int64   `json:"totalAccounts"`
	ActiveAccounts    int64   `json:"activeAccounts"`
	TotalBalance      float64 `json:"totalBalance"`
	TotalTransactions int64   `json:"totalTransactions"`
}

// PendingUser is a registered user waiting for activation.
type PendingUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt,omitempty"`
	ClientID  *int64 `json:"clientId,omitempty"`
}
