package memory_test

import (
	"testing"

	"github.com/PabloGalante/csr-lab/internal/adapters/storage/memory"
	"github.com/PabloGalante/csr-lab/internal/adapters/storage/storetest"
	"github.com/PabloGalante/csr-lab/internal/domain"
)

func TestDocumentStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.DocumentStore {
		return memory.NewDocumentStore()
	})
}
