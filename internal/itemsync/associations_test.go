package itemsync

import (
	"testing"

	"github.com/google/uuid"

	"github.com/notesync/transition-core/internal/domain"
)

func TestResolveSharedVaultAssociation_NilHashValuePreservesExisting(t *testing.T) {
	existing := &domain.SharedVaultAssociation{SharedVaultID: uuid.New()}

	got, err := resolveSharedVaultAssociation(existing, nil, uuid.New(), uuid.New(), domain.Timestamps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != existing {
		t.Error("expected existing association to be preserved unchanged")
	}
}

func TestResolveSharedVaultAssociation_SameVaultPreservesIdentity(t *testing.T) {
	vaultID := uuid.New()
	existing := &domain.SharedVaultAssociation{SharedVaultID: vaultID, LastEditedBy: uuid.New()}
	vaultStr := vaultID.String()

	got, err := resolveSharedVaultAssociation(existing, &vaultStr, uuid.New(), uuid.New(), domain.Timestamps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != existing {
		t.Error("expected same-vault hash to preserve the existing association's identity")
	}
}

func TestResolveSharedVaultAssociation_DifferentVaultReplaces(t *testing.T) {
	existing := &domain.SharedVaultAssociation{SharedVaultID: uuid.New()}
	newVault := uuid.New()
	newVaultStr := newVault.String()
	itemID := uuid.New()
	userID := uuid.New()
	ts := domain.Timestamps{CreatedAt: 1, UpdatedAt: 2}

	got, err := resolveSharedVaultAssociation(existing, &newVaultStr, itemID, userID, ts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == existing {
		t.Fatal("expected a new association to replace the existing one")
	}
	if got.SharedVaultID != newVault || got.ItemID != itemID || got.LastEditedBy != userID || got.Timestamps != ts {
		t.Errorf("unexpected replacement association: %+v", got)
	}
}

func TestResolveSharedVaultAssociation_InvalidUUID(t *testing.T) {
	bad := "not-a-uuid"
	_, err := resolveSharedVaultAssociation(nil, &bad, uuid.New(), uuid.New(), domain.Timestamps{})
	if err == nil {
		t.Error("expected an error for an unparseable vault UUID")
	}
}

func TestResolveKeySystemAssociation_SameKeySystemPreservesIdentity(t *testing.T) {
	keyID := uuid.New()
	existing := &domain.KeySystemAssociation{KeySystemID: keyID}
	keyStr := keyID.String()

	got, err := resolveKeySystemAssociation(existing, &keyStr, uuid.New(), domain.Timestamps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != existing {
		t.Error("expected same-key-system hash to preserve the existing association's identity")
	}
}

func TestResolveKeySystemAssociation_DifferentKeySystemReplaces(t *testing.T) {
	existing := &domain.KeySystemAssociation{KeySystemID: uuid.New()}
	newKey := uuid.New()
	newKeyStr := newKey.String()
	itemID := uuid.New()
	ts := domain.Timestamps{CreatedAt: 1, UpdatedAt: 2}

	got, err := resolveKeySystemAssociation(existing, &newKeyStr, itemID, ts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == existing {
		t.Fatal("expected a new association to replace the existing one")
	}
	if got.KeySystemID != newKey || got.ItemID != itemID || got.Timestamps != ts {
		t.Errorf("unexpected replacement association: %+v", got)
	}
}
