package banktest

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/aussiebroadwan/egabank/pkg/httpx"
)

// ============================================================================
// Seeding
// ============================================================================

// AddUser creates an active user. A zero clientID leaves the user without a
// client record.
func (s *Server) AddUser(username, password, role string, clientID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, password, role, clientID).id
}

// AddClient creates a client record.
func (s *Server) AddClient(req banksdk.ClientRequest) banksdk.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientViewLocked(s.addClientLocked(req), false)
}

// AddAccount opens an active account for clientID with an initial balance.
func (s *Server) AddAccount(clientID int64, typ banksdk.AccountType, balance float64) banksdk.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAccountLocked(clientID, typ, balance)
}

// SetAccountActive flips the active flag of an account.
func (s *Server) SetAccountActive(number string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[number]; ok {
		a.Active = active
	}
}

// Account returns the server-side state of an account.
func (s *Server) Account(number string) (banksdk.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[number]
	if !ok {
		return banksdk.Account{}, false
	}
	return *a, true
}

// Client returns the server-side state of a client.
func (s *Server) Client(id int64) (banksdk.Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return banksdk.Client{}, false
	}
	return s.clientViewLocked(c, false), true
}

// ============================================================================
// Users
// ============================================================================

func (s *Server) addUserLocked(username, password, role string, clientID int64) *user {
	s.nextID++
	u := &user{
		id:       s.nextID,
		username: username,
		password: password,
		email:    username + "@egabank.test",
		role:     role,
		active:   true,
		clientID: clientID,
		created:  s.now(),
	}
	if c, ok := s.clients[clientID]; ok && c.Email != "" {
		u.email = c.Email
	}
	s.users = append(s.users, u)
	return u
}

func (s *Server) userByName(username string) *user {
	for _, u := range s.users {
		if u.username == username {
			return u
		}
	}
	return nil
}

// currentClientLocked returns the client record of the authenticated user.
func (s *Server) currentClientLocked(r *http.Request) *banksdk.Client {
	u := s.userByName(httpx.SubjectFromContext(r.Context()))
	if u == nil {
		return nil
	}
	return s.clients[u.clientID]
}

// ============================================================================
// Clients
// ============================================================================

func (s *Server) addClientLocked(req banksdk.ClientRequest) *banksdk.Client {
	s.nextID++
	c := &banksdk.Client{ID: s.nextID, CreatedAt: s.now().Format(timestampLayout)}
	applyClient(c, req)
	s.clients[c.ID] = c
	s.clientOrder = append(s.clientOrder, c.ID)
	return c
}

func applyClient(c *banksdk.Client, req banksdk.ClientRequest) {
	c.LastName = req.LastName
	c.FirstName = req.FirstName
	c.FullName = strings.TrimSpace(req.FirstName + " " + req.LastName)
	c.BirthDate = req.BirthDate
	c.Sex = req.Sex
	c.Address = req.Address
	c.Phone = req.Phone
	c.Email = req.Email
	c.Nationality = req.Nationality
}

func (s *Server) clientViewLocked(c *banksdk.Client, details bool) banksdk.Client {
	out := *c
	accounts := s.accountsOfLocked(c.ID)
	out.AccountCount = len(accounts)
	if details {
		out.Accounts = accounts
	}
	return out
}

func (s *Server) clientsLocked(keep func(*banksdk.Client) bool) []banksdk.Client {
	out := []banksdk.Client{}
	for _, id := range s.clientOrder {
		if c := s.clients[id]; keep(c) {
			out = append(out, s.clientViewLocked(c, false))
		}
	}
	return out
}

func (s *Server) clientByEmailLocked(email string, except int64) *banksdk.Client {
	for _, c := range s.clients {
		if c.ID != except && strings.EqualFold(c.Email, email) {
			return c
		}
	}
	return nil
}

// ============================================================================
// Accounts
// ============================================================================

func (s *Server) addAccountLocked(clientID int64, typ banksdk.AccountType, balance float64) banksdk.Account {
	s.nextID++
	a := &banksdk.Account{
		ID:        s.nextID,
		Number:    fmt.Sprintf("FR7630004%018d", s.nextID),
		Type:      typ,
		Balance:   balance,
		Active:    true,
		CreatedAt: s.now().Format(timestampLayout),
		ClientID:  clientID,
	}
	if c, ok := s.clients[clientID]; ok {
		a.ClientName = c.FullName
	}
	s.accounts[a.Number] = a
	s.accountOrder = append(s.accountOrder, a.Number)
	return *a
}

func (s *Server) accountsOfLocked(clientID int64) []banksdk.Account {
	out := []banksdk.Account{}
	for _, num := range s.accountOrder {
		if a := s.accounts[num]; a.ClientID == clientID {
			out = append(out, *a)
		}
	}
	return out
}

func (s *Server) accountByIDLocked(id int64) *banksdk.Account {
	for _, a := range s.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (s *Server) removeAccountLocked(number string) {
	delete(s.accounts, number)
	s.accountOrder = slices.DeleteFunc(s.accountOrder, func(v string) bool { return v == number })
}

// usableAccountLocked returns the account or writes the 404/400 that a
// missing or inactive account gets.
func (s *Server) usableAccountLocked(w http.ResponseWriter, r *http.Request, number string) (*banksdk.Account, bool) {
	a, ok := s.accounts[number]
	if !ok {
		notFound(w, r, "Compte", "numeroCompte", number)
		return nil, false
	}
	if !a.Active {
		httpx.WriteError(w, r, http.StatusBadRequest, fmt.Sprintf("Le compte %s est inactif", number))
		return nil, false
	}
	return a, true
}

// ============================================================================
// Transactions
// ============================================================================

func (s *Server) recordLocked(tx banksdk.Transaction) banksdk.Transaction {
	s.nextID++
	tx.ID = s.nextID
	tx.Date = s.now().Format(timestampLayout)
	s.transactions = append(s.transactions, tx)
	return tx
}

// transactionsLocked returns matching transactions, newest first.
func (s *Server) transactionsLocked(keep func(banksdk.Transaction) bool) []banksdk.Transaction {
	out := []banksdk.Transaction{}
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if tx := s.transactions[i]; keep(tx) {
			out = append(out, s.present(tx))
		}
	}
	return out
}

// present strips the post-operation balances the server is configured
// not to report.
func (s *Server) present(tx banksdk.Transaction) banksdk.Transaction {
	if s.omitBalances {
		tx.BalanceBefore = nil
		tx.BalanceAfter = nil
		tx.DestinationBalanceAfter = nil
	}
	if s.omitDestination {
		tx.DestinationBalanceAfter = nil
	}
	return tx
}
