package mapping

import (
	"fmt"

	gojson "github.com/goccy/go-json"

	"github.com/opsarc/paperflow/internal/core/domain"
	"github.com/opsarc/paperflow/internal/models"
)

// ToModelTransaction converts a domain Transaction to a model Transaction,
// encoding the metadata map into its JSONB representation.
func ToModelTransaction(d domain.Transaction) (models.Transaction, error) {
	var metadata []byte
	if len(d.Metadata) > 0 {
		encoded, err := gojson.Marshal(d.Metadata)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("failed to encode transaction metadata: %w", err)
		}
		metadata = encoded
	}
	return models.Transaction{
		TransactionID:   d.TransactionID,
		WorkspaceID:     d.WorkspaceID,
		TransactionDate: d.TransactionDate,
		Description:     d.Description,
		Source:          d.Source,
		ExternalID:      d.ExternalID,
		Status:          models.TransactionStatus(d.Status),
		Metadata:        metadata,
		AuditFields:     ToModelAuditFields(d.AuditFields),
	}, nil
}

// ToDomainTransaction converts a model Transaction to a domain Transaction,
// decoding the JSONB metadata blob.
func ToDomainTransaction(m models.Transaction) (domain.Transaction, error) {
	var metadata map[string]any
	if len(m.Metadata) > 0 {
		if err := gojson.Unmarshal(m.Metadata, &metadata); err != nil {
			return domain.Transaction{}, fmt.Errorf("failed to decode transaction metadata: %w", err)
		}
	}
	return domain.Transaction{
		TransactionID:   m.TransactionID,
		WorkspaceID:     m.WorkspaceID,
		TransactionDate: m.TransactionDate,
		Description:     m.Description,
		Source:          m.Source,
		ExternalID:      m.ExternalID,
		Status:          domain.TransactionStatus(m.Status),
		Metadata:        metadata,
		AuditFields:     ToDomainAuditFields(m.AuditFields),
	}, nil
}

// ToModelJournalEntry converts a domain JournalEntry to a model JournalEntry
func ToModelJournalEntry(d domain.JournalEntry) models.JournalEntry {
	return models.JournalEntry{
		EntryID:       d.EntryID,
		TransactionID: d.TransactionID,
		AccountID:     d.AccountID,
		EntryType:     models.EntryType(d.EntryType),
		Amount:        d.Amount,
		Description:   d.Description,
		AuditFields:   ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainJournalEntry converts a model JournalEntry to a domain JournalEntry
func ToDomainJournalEntry(m models.JournalEntry) domain.JournalEntry {
	return domain.JournalEntry{
		EntryID:       m.EntryID,
		TransactionID: m.TransactionID,
		AccountID:     m.AccountID,
		EntryType:     domain.EntryType(m.EntryType),
		Amount:        m.Amount,
		Description:   m.Description,
		AuditFields:   ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainJournalEntrySlice converts a slice of model JournalEntries to a slice of domain JournalEntries
func ToDomainJournalEntrySlice(ms []models.JournalEntry) []domain.JournalEntry {
	ds := make([]domain.JournalEntry, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainJournalEntry(m)
	}
	return ds
}
