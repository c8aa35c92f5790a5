package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prima-facie-go/internal/model"
	"prima-facie-go/internal/repository"
	"prima-facie-go/internal/testfixture"
	"prima-facie-go/pkg/es"
)

type memIndexer struct {
	docs map[string]es.IndexedDocument
}

func (m *memIndexer) IndexDocument(_ context.Context, doc es.IndexedDocument) error {
	m.docs[doc.DocumentID] = doc
	return nil
}

func TestReindexCoversAllDocuments(t *testing.T) {
	db := testfixture.OpenDB(t)
	f := testfixture.Seed(t, db, nil)

	extra := make([]model.Document, 0, 205)
	for i := 0; i < 205; i++ {
		extra = append(extra, model.Document{
			LawFirmID: f.Firm.ID,
			MatterID:  &f.MatterA.ID,
			Name:      fmt.Sprintf("anexo-%03d.pdf", i),
		})
	}
	require.NoError(t, db.CreateInBatches(&extra, 50).Error)
	foreign := model.Document{LawFirmID: f.Other.ID, Name: "outro.pdf"}
	require.NoError(t, db.Create(&foreign).Error)

	idx := &memIndexer{docs: map[string]es.IndexedDocument{}}
	n, err := reindex(context.Background(), repository.NewMatterRepository(db), idx, f.Firm.ID)
	require.NoError(t, err)

	assert.Equal(t, 207, n)
	assert.Len(t, idx.docs, 207)
	assert.Contains(t, idx.docs, f.DocumentA.ID)
	assert.Contains(t, idx.docs, f.DocumentB.ID)
	assert.NotContains(t, idx.docs, foreign.ID)
	for _, d := range idx.docs {
		assert.Equal(t, f.Firm.ID, d.LawFirmID)
	}
	assert.Equal(t, f.MatterA.ID, idx.docs[extra[0].ID].MatterID)
}
