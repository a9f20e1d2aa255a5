package domain

// OwnerKind tags the variant held by an OwnerIdentity.
type OwnerKind int

const (
	OwnerAnonymous OwnerKind = iota
	OwnerLocalAccount
	OwnerProvidedAccount
)

func (k OwnerKind) String() string {
	switch k {
	case OwnerLocalAccount:
		return "local"
	case OwnerProvidedAccount:
		return "provided"
	default:
		return "anonymous"
	}
}

// OwnerIdentity is resolved once when a chat starts and never re-guessed.
// The zero value is the anonymous owner.
type OwnerIdentity struct {
	Kind     OwnerKind
	Username string // LocalAccount only
	ID       string // ProvidedAccount only
	Email    string // ProvidedAccount only
}

func Anonymous() OwnerIdentity {
	return OwnerIdentity{Kind: OwnerAnonymous}
}

func LocalAccount(username string) OwnerIdentity {
	return OwnerIdentity{Kind: OwnerLocalAccount, Username: username}
}

func ProvidedAccount(id, email string) OwnerIdentity {
	return OwnerIdentity{Kind: OwnerProvidedAccount, ID: id, Email: email}
}

func (o OwnerIdentity) IsAnonymous() bool {
	switch o.Kind {
	case OwnerLocalAccount:
		return o.Username == ""
	case OwnerProvidedAccount:
		return o.ID == ""
	default:
		return true
	}
}

// Key prefixes for the account variants.
const (
	localKeyPrefix    = "local:"
	providedKeyPrefix = "provided:"
)

// Key is the owner identifier used by the persistence layer. Both account
// variants are namespaced, so no username or provider id can yield the key
// of the other variant.
func (o OwnerIdentity) Key() UserID {
	if o.IsAnonymous() {
		return ""
	}
	if o.Kind == OwnerLocalAccount {
		return UserID(localKeyPrefix + o.Username)
	}
	return UserID(providedKeyPrefix + o.ID)
}

// DisplayName returns the best human-readable label for the owner.
func (o OwnerIdentity) DisplayName() string {
	switch {
	case o.IsAnonymous():
		return "guest"
	case o.Kind == OwnerLocalAccount:
		return o.Username
	case o.Email != "":
		return o.Email
	default:
		return o.ID
	}
}
