package worker

import (
	"context"
	"errors"
	"testing"

	"emprest/internal/amqp"
	"emprest/internal/core"
	"emprest/internal/loans"
	"emprest/internal/sheets/memory"
	"emprest/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBlobs struct{}

func (failingBlobs) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk gone") }
func (failingBlobs) Set(context.Context, string, []byte) error   { return errors.New("disk gone") }

type failingWriter struct{}

func (failingWriter) WriteSchedule(context.Context, []core.Loan) error {
	return errors.New("quota exceeded")
}

func storeLoans(t *testing.T, blobs storage.BlobStore, all []core.Loan) {
	t.Helper()
	raw, err := loans.EncodeStorage(all)
	require.NoError(t, err)
	require.NoError(t, blobs.Set(context.Background(), loans.DefaultStorageKey, raw))
}

func sampleLoan() core.Loan {
	return core.Loan{
		ID: "l-1", Name: "Car", InstallmentsCount: 2,
		Installments: []core.Installment{
			{ID: "i-1", Number: 1, DueDate: "2024-04-10", ExpectedAmountCents: 500},
			{ID: "i-2", Number: 2, DueDate: "2024-05-10", ExpectedAmountCents: 500},
		},
	}
}

func TestSyncWorker_HandleLoansChanged(t *testing.T) {
	blobs := storage.NewMemoryStore()
	writer := memory.New()
	w := NewSyncWorker(blobs, "", writer, nil)
	storeLoans(t, blobs, []core.Loan{sampleLoan()})

	err := w.HandleLoansChanged(context.Background(), amqp.NewLoansChangedMessage(3, amqp.OpUpdate, 1))
	require.NoError(t, err)

	rows := writer.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "Car", rows[1][1])
	assert.Equal(t, 1, writer.Writes())
}

func TestSyncWorker_EmptyStorageClearsSheet(t *testing.T) {
	writer := memory.New()
	w := NewSyncWorker(storage.NewMemoryStore(), "", writer, nil)

	require.NoError(t, w.StartupSync(context.Background()))
	assert.Len(t, writer.Rows(), 1, "only the header")
}

func TestSyncWorker_UndecodableDocumentIsSkipped(t *testing.T) {
	blobs := storage.NewMemoryStore()
	require.NoError(t, blobs.Set(context.Background(), "custom", []byte(`{"version":2,"loans":[]}`)))
	writer := memory.New()
	w := NewSyncWorker(blobs, "custom", writer, nil)

	require.NoError(t, w.Sync(context.Background()))
	assert.Equal(t, 0, writer.Writes())
}

func TestSyncWorker_Errors(t *testing.T) {
	ctx := context.Background()

	w := NewSyncWorker(failingBlobs{}, "", memory.New(), nil)
	err := w.StartupSync(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read stored loans")

	blobs := storage.NewMemoryStore()
	storeLoans(t, blobs, []core.Loan{sampleLoan()})
	w = NewSyncWorker(blobs, "", failingWriter{}, nil)
	err = w.HandleLoansChanged(ctx, amqp.NewLoansChangedMessage(1, amqp.OpCreate, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
