package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	"github.com/amirhossein-jamali/mwallet/internal/domain/usecase/account"
	"github.com/amirhossein-jamali/mwallet/internal/domain/usecase/payment"
	"github.com/amirhossein-jamali/mwallet/internal/domain/usecase/pin"
	"github.com/amirhossein-jamali/mwallet/internal/domain/usecase/resolver"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/api/dto"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/api/handler"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/event"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/identity"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/logger"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/memstore"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/session"
	timeProvider "github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/time"
)

const startingBalance = 5000000

type testAPI struct {
	router  *gin.Engine
	server  http.Handler
	store   *memstore.Store
}

func newTestAPI(t *testing.T, checks map[string]handler.HealthCheck) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNoopLogger()
	clock := timeProvider.NewRealTimeProvider()
	store := memstore.NewStore(entity.DefaultBanks(), clock, log)
	uow := memstore.NewUnitOfWork(store)

	sessions, err := session.NewJWTProvider(session.Config{
		Secret:   "0123456789abcdef0123456789abcdef",
		Issuer:   "mwallet-test",
		TokenTTL: time.Hour,
	}, memstore.NewRevocationStore(clock), clock, log)
	require.NoError(t, err)

	gate := pin.NewGate(4, log)
	ids := identity.NewGenerator()
	engine := payment.NewEngine(uow, memstore.NewSubmissionStore(clock), memstore.NewSenderLock(clock),
		event.NewNoopPublisher(log), gate, ids, clock, log, payment.DefaultConfig())
	t.Cleanup(engine.Shutdown)

	if checks == nil {
		checks = map[string]handler.HealthCheck{"store": func(context.Context) error { return nil }}
	}

	router := gin.New()
	SetupMiddlewares(router, log)
	SetupRoutes(router, Handlers{
		User:        handler.NewUserHandler(account.NewUseCase(uow, sessions, gate, ids, clock, log, startingBalance), log),
		Transaction: handler.NewTransactionHandler(engine, log),
		Lookup:      handler.NewLookupHandler(resolver.NewResolver(uow.GetDirectoryRepository(context.Background()), log)),
		Health:      handler.NewHealthHandler(checks),
	}, sessions)

	return &testAPI{router: router, server: Handler(router, []string{"http://wallet.local"}), store: store}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) signupAndLogin(t *testing.T, name, email, phone string) (dto.UserResponse, string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/auth/signup", "", dto.SignupRequest{
		FullName:        name,
		Email:           email,
		Phone:           phone,
		Password:        "secret1",
		ConfirmPassword: "secret1",
		PIN:             "1234",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode[dto.UserResponse](t, rec)

	rec = a.do(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: email, Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return user, decode[dto.LoginResponse](t, rec).Token
}

func TestAPI_TransferFlow(t *testing.T) {
	api := newTestAPI(t, nil)
	alice, aliceToken := api.signupAndLogin(t, "Alice Doe", "alice@example.com", "08031234567")
	bob, bobToken := api.signupAndLogin(t, "Bob Roe", "bob@example.com", "08051234567")

	require.Len(t, bob.Accounts, 1)
	assert.Equal(t, "50000.00", alice.Balance)

	rec := api.do(t, http.MethodGet, "/api/v1/lookup/account?bankCode="+bob.Accounts[0].BankCode+"&accountNumber="+bob.Accounts[0].AccountNumber, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bob Roe", decode[dto.AccountHolderResponse](t, rec).FullName)

	rec = api.do(t, http.MethodPost, "/api/v1/payments/transfer", aliceToken, dto.TransferRequest{
		BankCode:      bob.Accounts[0].BankCode,
		AccountNumber: bob.Accounts[0].AccountNumber,
		Amount:        "20000",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	sub := decode[dto.SubmissionResponse](t, rec)
	assert.Equal(t, string(entity.StateAwaitingPin), sub.State)
	assert.Equal(t, "Bob Roe", sub.ReceiverName)

	t.Run("another user cannot see the submission", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/v1/payments/"+sub.ID, bobToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("wrong PIN moves nothing and returns the form for editing", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/v1/payments/"+sub.ID+"/confirm", aliceToken, dto.ConfirmRequest{PIN: "9999"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, errs.CodeIncorrectPIN, decode[dto.ErrorResponse](t, rec).Code)

		rec = api.do(t, http.MethodGet, "/api/v1/payments/"+sub.ID, aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		failed := decode[dto.SubmissionResponse](t, rec)
		assert.Equal(t, string(entity.StateEditing), failed.State)
		assert.Equal(t, "Incorrect PIN", failed.Failure)
		assert.Equal(t, "20000", failed.Form.Amount)

		rec = api.do(t, http.MethodGet, "/api/v1/me/dashboard", aliceToken, nil)
		assert.Equal(t, "50000.00", decode[dto.DashboardResponse](t, rec).Balance)
	})

	rec = api.do(t, http.MethodPost, "/api/v1/payments/transfer", aliceToken, dto.TransferRequest{
		BankCode:      bob.Accounts[0].BankCode,
		AccountNumber: bob.Accounts[0].AccountNumber,
		Amount:        "20000",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	sub = decode[dto.SubmissionResponse](t, rec)

	rec = api.do(t, http.MethodPost, "/api/v1/payments/"+sub.ID+"/confirm", aliceToken, dto.ConfirmRequest{PIN: "1234"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	receipt := decode[dto.ReceiptResponse](t, rec)
	assert.Equal(t, "20000.00", receipt.Amount)
	assert.Equal(t, "30000.00", receipt.Balance)

	rec = api.do(t, http.MethodGet, "/api/v1/me/dashboard", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[dto.DashboardResponse](t, rec)
	assert.Equal(t, "Alice", dash.FirstName)
	assert.Equal(t, "30000.00", dash.Balance)
	require.Len(t, dash.Transactions, 1)
	assert.Equal(t, dto.DirectionDebit, dash.Transactions[0].Direction)

	rec = api.do(t, http.MethodGet, "/api/v1/me/transactions", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bobTxns := decode[struct {
		Transactions []dto.TransactionResponse `json:"transactions"`
	}](t, rec)
	require.Len(t, bobTxns.Transactions, 1)
	assert.Equal(t, dto.DirectionCredit, bobTxns.Transactions[0].Direction)
	assert.Equal(t, "transfer", bobTxns.Transactions[0].Type)
	assert.Equal(t, "completed", bobTxns.Transactions[0].Status)
}

func TestAPI_CancelReturnsForm(t *testing.T) {
	api := newTestAPI(t, nil)
	_, token := api.signupAndLogin(t, "Alice Doe", "alice@example.com", "08031234567")

	rec := api.do(t, http.MethodPost, "/api/v1/payments/airtime", token, dto.AirtimeRequest{Phone: "08091234567", Amount: "500"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	sub := decode[dto.SubmissionResponse](t, rec)
	assert.Equal(t, string(entity.Carrier9Mobile), sub.Network)

	rec = api.do(t, http.MethodPost, "/api/v1/payments/"+sub.ID+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decode[dto.SubmissionResponse](t, rec)
	assert.Equal(t, string(entity.StateEditing), cancelled.State)
	assert.Equal(t, "08091234567", cancelled.Form.Phone)
	assert.Equal(t, "500", cancelled.Form.Amount)

	rec = api.do(t, http.MethodPost, "/api/v1/payments/"+sub.ID+"/confirm", token, dto.ConfirmRequest{PIN: "1234"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/me/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "50000.00", decode[dto.DashboardResponse](t, rec).Balance)
}

func TestAPI_Errors(t *testing.T) {
	api := newTestAPI(t, nil)
	_, token := api.signupAndLogin(t, "Alice Doe", "alice@example.com", "08031234567")

	t.Run("validation failures list every field", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/v1/payments/transfer", token, dto.TransferRequest{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decode[dto.ErrorResponse](t, rec)
		assert.Equal(t, errs.CodeValidation, resp.Code)
		assert.Equal(t, "Amount is required", resp.Fields["amount"])
		assert.Equal(t, "Choose a bank", resp.Fields["bankCode"])
		assert.Equal(t, "Account number is required", resp.Fields["accountNumber"])
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/v1/auth/signup", "", dto.SignupRequest{
			FullName: "Other", Email: "alice@example.com", Phone: "08021234567",
			Password: "secret1", ConfirmPassword: "secret1", PIN: "1234",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "This email already exists", decode[dto.ErrorResponse](t, rec).Message)
	})

	t.Run("bad credentials", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "alice@example.com", Password: "wrong-one"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, errs.CodeInvalidCredentials, decode[dto.ErrorResponse](t, rec).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		api.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("login without a password", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "alice@example.com"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("confirm without a pin is rejected before lookup", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/v1/payments/unknown/confirm", token, dto.ConfirmRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing session", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/v1/me/dashboard", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Please login", decode[dto.ErrorResponse](t, rec).Message)
	})

	t.Run("logout ends the session", func(t *testing.T) {
		_, other := api.signupAndLogin(t, "Carol Poe", "carol@example.com", "08021234567")
		rec := api.do(t, http.MethodPost, "/api/v1/auth/logout", other, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = api.do(t, http.MethodGet, "/api/v1/me/dashboard", other, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown network", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/v1/lookup/network?phone=07001234567", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = api.do(t, http.MethodGet, "/api/v1/lookup/network?phone=08031234567", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "MTN", decode[dto.NetworkResponse](t, rec).Network)
	})
}

func TestAPI_Banks(t *testing.T) {
	api := newTestAPI(t, nil)
	rec := api.do(t, http.MethodGet, "/api/v1/banks", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	banks := decode[struct {
		Banks []entity.Bank `json:"banks"`
	}](t, rec)
	assert.Len(t, banks.Banks, len(entity.DefaultBanks()))
}

func TestAPI_HealthAndMiddleware(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		api := newTestAPI(t, nil)
		rec := api.do(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("degraded", func(t *testing.T) {
		api := newTestAPI(t, map[string]handler.HealthCheck{
			"store": func(context.Context) error { return errors.New("down") },
		})
		rec := api.do(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("request id is echoed", func(t *testing.T) {
		api := newTestAPI(t, nil)
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", "req-42")
		rec := httptest.NewRecorder()
		api.server.ServeHTTP(rec, req)
		assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	})

	t.Run("cors preflight", func(t *testing.T) {
		api := newTestAPI(t, nil)
		preflight := func(origin string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/me/dashboard", nil)
			req.Header.Set("Origin", origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			req.Header.Set("Access-Control-Request-Headers", "Authorization")
			rec := httptest.NewRecorder()
			api.server.ServeHTTP(rec, req)
			return rec
		}

		rec := preflight("http://wallet.local")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://wallet.local", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

		rec = preflight("http://evil.local")
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("cors actual request exposes the request id", func(t *testing.T) {
		api := newTestAPI(t, nil)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/banks", nil)
		req.Header.Set("Origin", "http://wallet.local")
		rec := httptest.NewRecorder()
		api.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://wallet.local", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "X-Request-Id", rec.Header().Get("Access-Control-Expose-Headers"))
	})

	t.Run("panics are recovered", func(t *testing.T) {
		api := newTestAPI(t, nil)
		api.router.GET("/boom", func(c *gin.Context) { panic("boom") })
		rec := api.do(t, http.MethodGet, "/boom", "", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, errs.CodeInternalServer, decode[dto.ErrorResponse](t, rec).Code)
	})
}
