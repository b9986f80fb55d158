package dto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waifubot/backend/internal/domain/ledger"
)

func TestListQuery_ToFilter(t *testing.T) {
	f := ListQuery{}.ToFilter()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageSize, f.PageSize)

	f = ListQuery{Page: 3, PageSize: 50}.ToFilter()
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, 50, f.PageSize)
	assert.Equal(t, 100, f.Offset())
}

func TestCardListQuery_ToFilter(t *testing.T) {
	f := CardListQuery{}.ToFilter()
	assert.Empty(t, f.OrderBy)
	assert.Equal(t, "asc", f.OrderDir)

	f = CardListQuery{ListQuery: ListQuery{Page: 2}, OrderBy: "name", OrderDir: "desc"}.ToFilter()
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, "name", f.OrderBy)
	assert.Equal(t, "desc", f.OrderDir)
}

func TestAdjustBalanceRequest_ToAppRequest(t *testing.T) {
	req := AdjustBalanceRequest{IssuerID: 2, Given: 500, Daily: -10}.ToAppRequest()

	assert.Equal(t, int64(2), req.IssuerID)
	assert.Equal(t, ledger.Balance{Daily: -10, Given: 500}, req.Delta)
}

func TestAddCardRequest_ToAppRequest(t *testing.T) {
	req, err := AddCardRequest{
		IssuerID:    1,
		Name:        "Rem",
		Anime:       "Re:Zero",
		Rarity:      "Elegant Rose",
		MediaType:   ledger.MediaTypePhoto,
		MediaFileID: "file-1",
		ChatID:      -100,
	}.ToAppRequest()

	require.NoError(t, err)
	assert.Equal(t, ledger.RarityElegantRose, req.Card.Rarity)
	assert.Equal(t, int64(-100), req.ChatID)

	_, err = AddCardRequest{Rarity: "Shiny"}.ToAppRequest()
	assert.True(t, errors.Is(err, ledger.ErrUnknownRarity))
}
