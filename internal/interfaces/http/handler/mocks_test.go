package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	appexchange "github.com/waifubot/backend/internal/application/exchange"
	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/domain/shared"
	"github.com/waifubot/backend/internal/interfaces/http/dto"
	"github.com/waifubot/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// MockLedgerAPI is a mock implementation of LedgerAPI
type MockLedgerAPI struct {
	mock.Mock
}

func (m *MockLedgerAPI) GetBalance(ctx context.Context, accountID int64) (*appexchange.BalanceResponse, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appexchange.BalanceResponse), args.Error(1)
}

func (m *MockLedgerAPI) AdjustBalance(ctx context.Context, accountID int64, req appexchange.AdjustBalanceRequest) (*appexchange.BalanceResponse, error) {
	args := m.Called(ctx, accountID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appexchange.BalanceResponse), args.Error(1)
}

func (m *MockLedgerAPI) ClaimReward(ctx context.Context, accountID int64, category string) (*appexchange.RewardClaimResponse, error) {
	args := m.Called(ctx, accountID, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appexchange.RewardClaimResponse), args.Error(1)
}

func (m *MockLedgerAPI) GetInventoryCount(ctx context.Context, accountID, cardID int64) (*appexchange.InventoryCountResponse, error) {
	args := m.Called(ctx, accountID, cardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appexchange.InventoryCountResponse), args.Error(1)
}

func (m *MockLedgerAPI) ListInventory(ctx context.Context, accountID int64, filter shared.Filter) (shared.Paginated[appexchange.InventoryEntryResponse], error) {
	args := m.Called(ctx, accountID, filter)
	return args.Get(0).(shared.Paginated[appexchange.InventoryEntryResponse]), args.Error(1)
}

func (m *MockLedgerAPI) ListHistory(ctx context.Context, accountID int64, filter shared.Filter) (shared.Paginated[appexchange.HistoryEntryResponse], error) {
	args := m.Called(ctx, accountID, filter)
	return args.Get(0).(shared.Paginated[appexchange.HistoryEntryResponse]), args.Error(1)
}

func (m *MockLedgerAPI) GetCard(ctx context.Context, cardID int64) (*appexchange.CardResponse, error) {
	args := m.Called(ctx, cardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appexchange.CardResponse), args.Error(1)
}

func (m *MockLedgerAPI) ListCards(ctx context.Context, rarity ledger.Rarity, filter shared.Filter) (shared.Paginated[appexchange.CardResponse], error) {
	args := m.Called(ctx, rarity, filter)
	return args.Get(0).(shared.Paginated[appexchange.CardResponse]), args.Error(1)
}

// MockExchangeAPI is a mock implementation of ExchangeAPI
type MockExchangeAPI struct {
	mock.Mock
}

func (m *MockExchangeAPI) proposal(args mock.Arguments) (*appexchange.ProposalResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appexchange.ProposalResponse), args.Error(1)
}

func (m *MockExchangeAPI) ProposeGift(ctx context.Context, req appexchange.GiftRequest) (*appexchange.ProposalResponse, error) {
	return m.proposal(m.Called(ctx, req))
}

func (m *MockExchangeAPI) ProposeTrade(ctx context.Context, req appexchange.TradeRequest) (*appexchange.ProposalResponse, error) {
	return m.proposal(m.Called(ctx, req))
}

func (m *MockExchangeAPI) PreviewPurchase(ctx context.Context, req appexchange.PurchaseRequest) (*appexchange.ProposalResponse, error) {
	return m.proposal(m.Called(ctx, req))
}

func (m *MockExchangeAPI) ProposeTransfer(ctx context.Context, req appexchange.TransferRequest) (*appexchange.ProposalResponse, error) {
	return m.proposal(m.Called(ctx, req))
}

func (m *MockExchangeAPI) ProposeReset(ctx context.Context, req appexchange.ResetRequest) (*appexchange.ProposalResponse, error) {
	return m.proposal(m.Called(ctx, req))
}

func (m *MockExchangeAPI) ProposeAddCard(ctx context.Context, req appexchange.AddCardRequest) (*appexchange.ProposalResponse, error) {
	return m.proposal(m.Called(ctx, req))
}

func (m *MockExchangeAPI) Lookup(ctx context.Context, token string) (*appexchange.ProposalResponse, error) {
	return m.proposal(m.Called(ctx, token))
}

func (m *MockExchangeAPI) Respond(ctx context.Context, token string, responderID int64, accept bool) (*appexchange.RespondResult, error) {
	args := m.Called(ctx, token, responderID, accept)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appexchange.RespondResult), args.Error(1)
}

func serve(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, rec.Body.String())
	return envelope.Data
}

func newTestEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	return engine
}
