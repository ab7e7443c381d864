package account

import (
	"context"
	"errors"
	"sync"

	"github.com/Causertragique/financeautonome2-sub001/internal/docstore"
	"github.com/Causertragique/financeautonome2-sub001/internal/identity"
	"github.com/google/uuid"
)

// fakeStore is an in-memory docstore.Store with scriptable failures. Errors
// queued in getErrs/writeErrs are consumed one per call before the real
// operation runs.
type fakeStore struct {
	mu        sync.Mutex
	docs      map[string]docstore.Document
	getErrs   []error
	writeErrs []error
	getCalls  int
	writes    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]docstore.Document)}
}

func (f *fakeStore) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.getCalls++
	if len(f.getErrs) > 0 {
		err := f.getErrs[0]
		f.getErrs = f.getErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	doc, ok := f.docs[collection+"/"+id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	out := docstore.Document{}
	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) MergeWrite(_ context.Context, collection, id string, fields docstore.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := collection + "/" + id
	f.writes = append(f.writes, key)
	if len(f.writeErrs) > 0 {
		err := f.writeErrs[0]
		f.writeErrs = f.writeErrs[1:]
		if err != nil {
			return err
		}
	}

	doc, ok := f.docs[key]
	if !ok {
		doc = docstore.Document{}
		f.docs[key] = doc
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (f *fakeStore) doc(collection, id string) (docstore.Document, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[collection+"/"+id]
	return doc, ok
}

func (f *fakeStore) writesTo(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, key := range f.writes {
		if len(key) > len(collection) && key[:len(collection)+1] == collection+"/" {
			n++
		}
	}
	return n
}

func transientErr() error {
	return &docstore.Error{Kind: docstore.KindTransient, Op: "merge-write", Err: errors.New("store unreachable")}
}

func permissionErr() error {
	return &docstore.Error{Kind: docstore.KindPermission, Op: "merge-write", Err: errors.New("write rejected")}
}

// fakeProvider implements identity.Provider. Google credential material is
// resolved by treating the ID token as the raw subject id.
type fakeProvider struct {
	identities  map[uuid.UUID]identity.Identity
	owners      map[string]uuid.UUID
	linkCalls   int
	unlinkCalls int
	unlinked    []identity.ProviderKind
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		identities: make(map[uuid.UUID]identity.Identity),
		owners:     make(map[string]uuid.UUID),
	}
}

func (p *fakeProvider) credentialFor(current identity.Identity, material identity.CredentialMaterial) identity.Credential {
	if material.Kind == identity.KindPassword {
		return identity.Credential{Kind: identity.KindPassword, SubjectID: current.Email}
	}
	return identity.Credential{Kind: material.Kind, SubjectID: material.IDToken}
}

func (p *fakeProvider) GetIdentity(_ context.Context, accountID uuid.UUID) (identity.Identity, error) {
	id, ok := p.identities[accountID]
	if !ok {
		return identity.Identity{}, identity.ErrAccountNotFound
	}
	return id, nil
}

func (p *fakeProvider) ResolveCredential(_ context.Context, current identity.Identity, material identity.CredentialMaterial) (identity.Credential, uuid.UUID, error) {
	cred := p.credentialFor(current, material)
	owner := p.owners[string(cred.Kind)+"/"+cred.SubjectID]
	return cred, owner, nil
}

func (p *fakeProvider) LinkCredential(_ context.Context, accountID uuid.UUID, material identity.CredentialMaterial) (identity.Credential, error) {
	p.linkCalls++
	cred := p.credentialFor(p.identities[accountID], material)
	p.owners[string(cred.Kind)+"/"+cred.SubjectID] = accountID
	return cred, nil
}

func (p *fakeProvider) UnlinkCredential(_ context.Context, accountID uuid.UUID, kind identity.ProviderKind) error {
	p.unlinkCalls++
	p.unlinked = append(p.unlinked, kind)
	return nil
}
