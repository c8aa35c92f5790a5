package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prima-facie-go/internal/model"
	"prima-facie-go/internal/testfixture"
)

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%ana%", likePattern("ANA"))
	assert.Equal(t, "%100!%%", likePattern("100%"))
	assert.Equal(t, "%a!_b%", likePattern("a_b"))
	assert.Equal(t, "%oi!!%", likePattern("oi!"))
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	db := testfixture.OpenDB(t)
	f := testfixture.Seed(t, db, nil)
	repo := NewMatterRepository(db)
	ctx := context.Background()

	promo := model.Contact{LawFirmID: f.Firm.ID, FullName: "Loja 100% Digital", Email: "contato_loja@example.com"}
	require.NoError(t, db.Create(&promo).Error)

	contacts, err := repo.ListContacts(ctx, f.Firm.ID, "%", 0)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, promo.ID, contacts[0].ID)

	contacts, err = repo.ListContacts(ctx, f.Firm.ID, "_", 0)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, promo.ID, contacts[0].ID)

	contacts, err = repo.ListContacts(ctx, f.Firm.ID, "SOUZA", 0)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, f.Ana.ID, contacts[0].ID)

	matters, err := repo.ListMatters(ctx, f.Firm.ID, MatterFilter{Search: "%"})
	require.NoError(t, err)
	assert.Empty(t, matters)

	matters, err = repo.ListMatters(ctx, f.Firm.ID, MatterFilter{Search: "2024-001"})
	require.NoError(t, err)
	require.Len(t, matters, 1)
	assert.Equal(t, f.MatterA.ID, matters[0].ID)
}

func TestListDocumentsPagesWithOffset(t *testing.T) {
	db := testfixture.OpenDB(t)
	f := testfixture.Seed(t, db, nil)
	repo := NewMatterRepository(db)
	ctx := context.Background()

	seen := map[string]bool{}
	for offset := 0; offset < 2; offset++ {
		docs, err := repo.ListDocuments(ctx, f.Firm.ID, DocumentFilter{Limit: 1, Offset: offset})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		seen[docs[0].ID] = true
	}
	assert.Equal(t, map[string]bool{f.DocumentA.ID: true, f.DocumentB.ID: true}, seen)

	docs, err := repo.ListDocuments(ctx, f.Firm.ID, DocumentFilter{Limit: 1, Offset: 2})
	require.NoError(t, err)
	assert.Empty(t, docs)
}
