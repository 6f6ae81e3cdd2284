package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engrave-queue/internal/domain"
)

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		{ID: "o1", CustomerName: "Alice", Email: "a@x.io", Category: "Foil", ItemName: "Blade", Quantity: 1, Status: domain.StatusPending, SubmittedAt: at},
		{ID: "o2", CustomerName: "Bob, Jr.", Email: "b@x.io", Category: "Epee", ItemName: "Guard", Quantity: 2, Status: domain.StatusPending, SubmittedAt: at},
	}
	require.NoError(t, writeFile(path, orders))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Bob, Jr.", records[2][1])
}

func TestWriteFileBadPath(t *testing.T) {
	assert.Error(t, writeFile(filepath.Join(t.TempDir(), "missing", "out.csv"), nil))
}
