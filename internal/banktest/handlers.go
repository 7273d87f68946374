package banktest

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/aussiebroadwan/egabank/pkg/httpx"
	"github.com/aussiebroadwan/egabank/pkg/jwtx"
)

const timestampLayout = "2006-01-02T15:04:05"

// ============================================================================
// Auth
// ============================================================================

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req banksdk.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.userByName(req.Username)
	if u == nil || u.password != req.Password {
		httpx.WriteError(w, r, http.StatusUnauthorized, "Nom d'utilisateur ou mot de passe incorrect")
		return
	}
	if !u.active {
		httpx.WriteError(w, r, http.StatusForbidden, "Compte en attente d'activation")
		return
	}

	resp, err := s.issue(u)
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req banksdk.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	fields := map[string]string{}
	if len(req.Username) < 3 {
		fields["username"] = "Le nom d'utilisateur doit contenir au moins 3 caractères"
	}
	if !strings.Contains(req.Email, "@") {
		fields["email"] = "Format d'email invalide"
	}
	if len(req.Password) < 6 {
		fields["password"] = "Le mot de passe doit contenir au moins 6 caractères"
	}
	if len(fields) > 0 {
		writeValidation(w, r, fields)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userByName(req.Username) != nil {
		httpx.WriteError(w, r, http.StatusConflict,
			fmt.Sprintf("Utilisateur existe déjà avec username : '%s'", req.Username))
		return
	}

	u := s.addUserLocked(req.Username, req.Password, banksdk.RoleUser, 0)
	u.email = req.Email
	u.active = false

	httpx.WriteJSON(w, http.StatusCreated, banksdk.AuthResponse{
		Username: u.username,
		Email:    u.email,
		Role:     u.role,
		Pending:  true,
		Message:  "Inscription réussie. Votre compte est en attente d'activation par un administrateur.",
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshes.Add(1)

	token := r.URL.Query().Get("refreshToken")
	claims, err := s.refresh.Verify(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	username, live := s.liveRefresh[token]
	if err != nil || !live || username != claims.Subject {
		httpx.WriteError(w, r, http.StatusUnauthorized, "Token de rafraîchissement invalide")
		return
	}
	delete(s.liveRefresh, token)

	u := s.userByName(username)
	if u == nil || !u.active {
		httpx.WriteError(w, r, http.StatusUnauthorized, "Utilisateur non trouvé")
		return
	}

	resp, err := s.issue(u)
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// issue signs a credential pair for u. Caller holds s.mu.
func (s *Server) issue(u *user) (banksdk.AuthResponse, error) {
	now := s.now()

	ac := jwtx.NewClaims(u.username, u.role, jwtx.UseAccess, s.accessTTL, now)
	ac.Email = u.email
	access, err := s.signer.Sign(ac)
	if err != nil {
		return banksdk.AuthResponse{}, err
	}

	rc := jwtx.NewClaims(u.username, u.role, jwtx.UseRefresh, jwtx.DefaultRefreshTokenTTL, now)
	refresh, err := s.signer.Sign(rc)
	if err != nil {
		return banksdk.AuthResponse{}, err
	}

	s.liveAccess[ac.ID] = true
	s.liveRefresh[refresh] = u.username

	return banksdk.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL / time.Second),
		Username:     u.username,
		Email:        u.email,
		Role:         u.role,
	}, nil
}

// ============================================================================
// Accounts
// ============================================================================

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]banksdk.Account, 0, len(s.accountOrder))
	for _, num := range s.accountOrder {
		all = append(all, *s.accounts[num])
	}
	httpx.WriteJSON(w, http.StatusOK, paginate(r, all))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[r.PathValue("numero")]
	if !ok {
		notFound(w, r, "Compte", "numeroCompte", r.PathValue("numero"))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (s *Server) handleAccountsForClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[id]; !ok {
		notFound(w, r, "Client", "id", id)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s.accountsOfLocked(id))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req banksdk.AccountRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Type != banksdk.AccountCurrent && req.Type != banksdk.AccountSavings {
		writeValidation(w, r, map[string]string{"typeCompte": "Le type de compte est obligatoire"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[req.ClientID]; !ok {
		notFound(w, r, "Client", "id", req.ClientID)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, s.addAccountLocked(req.ClientID, req.Type, 0))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.accountByIDLocked(id)
	if a == nil {
		notFound(w, r, "Compte", "id", id)
		return
	}
	s.removeAccountLocked(a.Number)
	httpx.WriteJSON(w, http.StatusOK, banksdk.MessageResponse{Success: true, Message: "Compte supprimé avec succès"})
}

func (s *Server) handleDeactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.accountByIDLocked(id)
	if a == nil {
		notFound(w, r, "Compte", "id", id)
		return
	}
	a.Active = false
	httpx.WriteJSON(w, http.StatusOK, banksdk.MessageResponse{Success: true, Message: "Compte désactivé avec succès"})
}

// ============================================================================
// Clients
// ============================================================================

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	httpx.WriteJSON(w, http.StatusOK, paginate(r, s.clientsLocked(func(*banksdk.Client) bool { return true })))
}

func (s *Server) handleSearchClients(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	s.mu.Lock()
	defer s.mu.Unlock()

	matches := s.clientsLocked(func(c *banksdk.Client) bool {
		return strings.Contains(strings.ToLower(c.LastName), q) ||
			strings.Contains(strings.ToLower(c.FirstName), q) ||
			strings.Contains(strings.ToLower(c.Email), q)
	})
	httpx.WriteJSON(w, http.StatusOK, paginate(r, matches))
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	s.writeClient(w, r, false)
}

func (s *Server) handleClientDetails(w http.ResponseWriter, r *http.Request) {
	s.writeClient(w, r, true)
}

func (s *Server) writeClient(w http.ResponseWriter, r *http.Request, details bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if !ok {
		notFound(w, r, "Client", "id", id)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s.clientViewLocked(c, details))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.currentClientLocked(r)
	if c == nil {
		httpx.WriteError(w, r, http.StatusNotFound, "Aucun client associé à cet utilisateur")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s.clientViewLocked(c, true))
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req banksdk.ProfileUpdateRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.currentClientLocked(r)
	if c == nil {
		httpx.WriteError(w, r, http.StatusNotFound, "Aucun client associé à cet utilisateur")
		return
	}
	if req.Phone != "" {
		c.Phone = req.Phone
	}
	if req.Address != "" {
		c.Address = req.Address
	}
	httpx.WriteJSON(w, http.StatusOK, s.clientViewLocked(c, true))
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req banksdk.ClientRequest
	if !decode(w, r, &req) || !validClient(w, r, req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Email != "" && s.clientByEmailLocked(req.Email, 0) != nil {
		httpx.WriteError(w, r, http.StatusConflict,
			fmt.Sprintf("Client existe déjà avec courriel : '%s'", req.Email))
		return
	}
	c := s.addClientLocked(req)
	httpx.WriteJSON(w, http.StatusCreated, s.clientViewLocked(c, false))
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req banksdk.ClientRequest
	if !decode(w, r, &req) || !validClient(w, r, req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if !ok {
		notFound(w, r, "Client", "id", id)
		return
	}
	if req.Email != "" && s.clientByEmailLocked(req.Email, id) != nil {
		httpx.WriteError(w, r, http.StatusConflict,
			fmt.Sprintf("Client existe déjà avec courriel : '%s'", req.Email))
		return
	}
	applyClient(c, req)
	httpx.WriteJSON(w, http.StatusOK, s.clientViewLocked(c, false))
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[id]; !ok {
		notFound(w, r, "Client", "id", id)
		return
	}
	for _, a := range s.accountsOfLocked(id) {
		s.removeAccountLocked(a.Number)
	}
	delete(s.clients, id)
	s.clientOrder = slices.DeleteFunc(s.clientOrder, func(v int64) bool { return v == id })
	httpx.WriteJSON(w, http.StatusOK, banksdk.MessageResponse{Success: true, Message: "Client supprimé avec succès"})
}

func validClient(w http.ResponseWriter, r *http.Request, req banksdk.ClientRequest) bool {
	fields := map[string]string{}
	if strings.TrimSpace(req.LastName) == "" {
		fields["nom"] = "Le nom est obligatoire"
	}
	if strings.TrimSpace(req.FirstName) == "" {
		fields["prenom"] = "Le prénom est obligatoire"
	}
	if req.BirthDate != "" {
		if _, err := time.Parse(banksdk.DateLayout, req.BirthDate); err != nil {
			fields["dateNaissance"] = "Format de date invalide"
		}
	}
	if len(fields) > 0 {
		writeValidation(w, r, fields)
		return false
	}
	return true
}

// ============================================================================
// Transactions
// ============================================================================

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.operate(w, r, banksdk.TxDeposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.operate(w, r, banksdk.TxWithdrawal)
}

func (s *Server) operate(w http.ResponseWriter, r *http.Request, typ banksdk.TransactionType) {
	var req banksdk.OperationRequest
	if !decode(w, r, &req) || !validAmount(w, r, req.Amount) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.usableAccountLocked(w, r, r.PathValue("numero"))
	if !ok {
		return
	}

	before := a.Balance
	switch typ {
	case banksdk.TxDeposit:
		a.Balance += req.Amount
	default:
		if a.Balance < req.Amount {
			httpx.WriteError(w, r, http.StatusBadRequest,
				fmt.Sprintf("Solde insuffisant. Solde disponible : %.2f", a.Balance))
			return
		}
		a.Balance -= req.Amount
	}

	tx := s.recordLocked(banksdk.Transaction{
		Type:          typ,
		Amount:        req.Amount,
		Description:   req.Description,
		AccountNumber: a.Number,
		BalanceBefore: ptr(before),
		BalanceAfter:  ptr(a.Balance),
	})
	httpx.WriteJSON(w, http.StatusCreated, s.present(tx))
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req banksdk.TransferRequest
	if !decode(w, r, &req) || !validAmount(w, r, req.Amount) {
		return
	}
	if req.Source == req.Destination {
		httpx.WriteError(w, r, http.StatusBadRequest, "Les comptes source et destination doivent être différents")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.usableAccountLocked(w, r, req.Source)
	if !ok {
		return
	}
	dst, ok := s.usableAccountLocked(w, r, req.Destination)
	if !ok {
		return
	}
	if src.Balance < req.Amount {
		httpx.WriteError(w, r, http.StatusBadRequest,
			fmt.Sprintf("Solde insuffisant. Solde disponible : %.2f", src.Balance))
		return
	}

	before := src.Balance
	src.Balance -= req.Amount
	dst.Balance += req.Amount

	tx := s.recordLocked(banksdk.Transaction{
		Type:                    banksdk.TxTransfer,
		Amount:                  req.Amount,
		Description:             req.Description,
		AccountNumber:           src.Number,
		DestinationAccount:      dst.Number,
		BalanceBefore:           ptr(before),
		BalanceAfter:            ptr(src.Balance),
		DestinationBalanceAfter: ptr(dst.Balance),
	})
	httpx.WriteJSON(w, http.StatusCreated, s.present(tx))
}

func (s *Server) handleAllTransactions(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	httpx.WriteJSON(w, http.StatusOK, s.transactionsLocked(func(banksdk.Transaction) bool { return true }))
}

func (s *Server) handleMyTransactions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owned := map[string]bool{}
	if c := s.currentClientLocked(r); c != nil {
		for _, a := range s.accountsOfLocked(c.ID) {
			owned[a.Number] = true
		}
	}
	httpx.WriteJSON(w, http.StatusOK, s.transactionsLocked(func(tx banksdk.Transaction) bool {
		return owned[tx.AccountNumber] || owned[tx.DestinationAccount]
	}))
}

func (s *Server) handleAccountTransactions(w http.ResponseWriter, r *http.Request) {
	num := r.PathValue("numero")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[num]; !ok {
		notFound(w, r, "Compte", "numeroCompte", num)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s.transactionsLocked(touches(num)))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	num := r.PathValue("numero")
	from, to, ok := period(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[num]; !ok {
		notFound(w, r, "Compte", "numeroCompte", num)
		return
	}
	inAccount := touches(num)
	httpx.WriteJSON(w, http.StatusOK, s.transactionsLocked(func(tx banksdk.Transaction) bool {
		if !inAccount(tx) {
			return false
		}
		at, err := time.Parse(timestampLayout, tx.Date)
		return err == nil && !at.Before(from) && at.Before(to.AddDate(0, 0, 1))
	}))
}

func validAmount(w http.ResponseWriter, r *http.Request, amount float64) bool {
	if amount <= 0 {
		writeValidation(w, r, map[string]string{"montant": "Le montant doit être positif"})
		return false
	}
	return true
}

func touches(num string) func(banksdk.Transaction) bool {
	return func(tx banksdk.Transaction) bool {
		return tx.AccountNumber == num || tx.DestinationAccount == num
	}
}

// ============================================================================
// Dashboard, statements and users
// ============================================================================

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := banksdk.DashboardStats{
		TotalClients:      int64(len(s.clients)),
		TotalAccounts:     int64(len(s.accounts)),
		TotalTransactions: int64(len(s.transactions)),
	}
	for _, a := range s.accounts {
		if a.Active {
			stats.ActiveAccounts++
		}
		stats.TotalBalance += a.Balance
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	num := r.PathValue("numero")
	from, to, ok := period(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	a, found := s.accounts[num]
	var lines []string
	if found {
		lines = append(lines, fmt.Sprintf("Releve %s du %s au %s", num, from.Format(banksdk.DateLayout), to.Format(banksdk.DateLayout)))
		for _, tx := range s.transactionsLocked(touches(num)) {
			lines = append(lines, fmt.Sprintf("%s %s %.2f", tx.Date, tx.Type, tx.Amount))
		}
		lines = append(lines, fmt.Sprintf("Solde %.2f", a.Balance))
	}
	s.mu.Unlock()

	if !found {
		notFound(w, r, "Compte", "numeroCompte", num)
		return
	}

	filename := fmt.Sprintf("releve_%s_%s_%s.pdf", num, from.Format(banksdk.DateLayout), to.Format(banksdk.DateLayout))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "%%PDF-1.4\n%% %s\n%%%%EOF\n", strings.Join(lines, "\n% "))
}

func (s *Server) handlePendingUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []banksdk.PendingUser{}
	for _, u := range s.users {
		if u.active {
			continue
		}
		p := banksdk.PendingUser{
			ID:        u.id,
			Username:  u.username,
			Email:     u.email,
			Role:      u.role,
			CreatedAt: u.created.Format(timestampLayout),
		}
		if u.clientID != 0 {
			p.ClientID = ptr(u.clientID)
		}
		out = append(out, p)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleActivateUser(w http.ResponseWriter, r *http.Request) {
	s.setUserActive(w, r, true, "Utilisateur activé avec succès")
}

func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	s.setUserActive(w, r, false, "Utilisateur désactivé avec succès")
}

func (s *Server) setUserActive(w http.ResponseWriter, r *http.Request, active bool, msg string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.id == id {
			u.active = active
			httpx.WriteJSON(w, http.StatusOK, banksdk.MessageResponse{Success: true, Message: msg})
			return
		}
	}
	notFound(w, r, "Utilisateur", "id", id)
}

// ============================================================================
// Request helpers
// ============================================================================

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "Corps de requête invalide")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "Identifiant invalide")
		return 0, false
	}
	return id, true
}

// period parses the debut and fin query parameters.
func period(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	from, errFrom := time.Parse(banksdk.DateLayout, q.Get("debut"))
	to, errTo := time.Parse(banksdk.DateLayout, q.Get("fin"))
	if errFrom != nil || errTo != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "Les paramètres debut et fin sont obligatoires (yyyy-MM-dd)")
		return time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		httpx.WriteError(w, r, http.StatusBadRequest, "La date de début doit précéder la date de fin")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func paginate[T any](r *http.Request, all []T) banksdk.Page[T] {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || size <= 0 {
		size = 10
	}
	page = max(page, 0)

	start := min(page*size, len(all))
	end := min(start+size, len(all))
	totalPages := (len(all) + size - 1) / size

	return banksdk.Page[T]{
		Content:       append([]T{}, all[start:end]...),
		TotalElements: int64(len(all)),
		PageNumber:    page,
		PageSize:      size,
		TotalPages:    totalPages,
		First:         page == 0,
		Last:          page >= totalPages-1,
	}
}

func writeValidation(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{
		Timestamp:        time.Now().UTC(),
		Status:           http.StatusBadRequest,
		Error:            "Validation Failed",
		Message:          "Erreur de validation des données",
		Path:             r.URL.Path,
		ValidationErrors: fields,
	})
}

func notFound(w http.ResponseWriter, r *http.Request, resource, field string, value any) {
	httpx.WriteError(w, r, http.StatusNotFound,
		fmt.Sprintf("%s non trouvé avec %s : '%v'", resource, field, value))
}

func ptr[T any](v T) *T { return &v }
