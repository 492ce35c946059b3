package ledger

import (
	"sort"
	"strings"
)

// bindDocumentRegistry installs the closed set of well-known handlers into a
// chaincode's function table. Handlers close over the chaincode instance so
// state reads and writes go to the installed instance, wherever it is
// attached.
func (l *Ledger) bindDocumentRegistry(cc *Chaincode) {
	cc.registerFunction(FuncRegisterDocument, func(args []string, callerID string) (any, error) {
		return l.registerDocument(cc, args, callerID)
	})
	cc.registerFunction(FuncGetDocument, func(args []string, callerID string) (any, error) {
		doc, err := l.getDocument(cc, args, callerID)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, nil
		}
		return doc, nil
	})
	cc.registerFunction(FuncGetAllDocuments, func(args []string, callerID string) (any, error) {
		return l.getAllDocuments(cc, callerID)
	})
	cc.registerFunction(FuncCreateUser, func(args []string, callerID string) (any, error) {
		return l.createUserFunc(args)
	})
	cc.registerFunction(FuncAuthenticateUser, func(args []string, callerID string) (any, error) {
		return l.authenticateUserFunc(args)
	})
}

// registerDocument stores a new document after checking the caller's domain
// role and the document's non-existence through the read path. All checks
// run before the state write so a rejected registration mutates nothing.
func (l *Ledger) registerDocument(cc *Chaincode, args []string, callerID string) (*Document, error) {
	if len(args) < 3 {
		return nil, Validationf("registerDocument requires docId, hash and domain")
	}
	docID, hash, domain := args[0], args[1], args[2]
	if docID == "" || hash == "" || domain == "" {
		return nil, Validationf("registerDocument requires non-empty docId, hash and domain")
	}

	user, ok := l.User(callerID)
	if !ok {
		return nil, NotFoundf("user not found")
	}

	domainRole := strings.ToUpper(domain) + "_ROLE"
	if !user.hasRole(domainRole) && !user.hasRole(RoleAdmin) {
		return nil, Authorizationf("unauthorized domain access: %s", domain)
	}

	// Existence is checked through the read path, so a document that is
	// visible to the caller blocks registration and one hidden behind
	// another organization surfaces the read path's authorization error.
	existing, err := l.getDocument(cc, []string{docID}, callerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, Conflictf("document already exists")
	}

	doc := &Document{
		Hash:         hash,
		Owner:        callerID,
		Domain:       domain,
		Organization: user.Organization,
		Timestamp:    nowMillis(),
	}
	cc.putState(docID, doc)

	return doc, nil
}

// getDocument returns the document stored under docId, or nil when absent.
// A present document is only released to its owner, an ADMIN, or a caller
// from the same organization.
func (l *Ledger) getDocument(cc *Chaincode, args []string, callerID string) (*Document, error) {
	if len(args) < 1 {
		return nil, Validationf("getDocument requires docId")
	}
	docID := args[0]

	doc, ok := cc.getState(docID)
	if !ok {
		return nil, nil
	}

	user, found := l.User(callerID)
	if !found {
		return nil, NotFoundf("user not found")
	}

	if doc.Owner != callerID && !user.hasRole(RoleAdmin) && doc.Organization != user.Organization {
		return nil, Authorizationf("unauthorized access to document")
	}

	return doc, nil
}

// getAllDocuments returns every document visible to the caller: those of the
// caller's organization, or all of them for an ADMIN. Each result is
// annotated with its state key.
func (l *Ledger) getAllDocuments(cc *Chaincode, callerID string) ([]*Document, error) {
	user, ok := l.User(callerID)
	if !ok {
		return nil, NotFoundf("user not found")
	}

	isAdmin := user.hasRole(RoleAdmin)
	documents := make([]*Document, 0)
	for docID, doc := range cc.stateSnapshot() {
		if doc.Organization != user.Organization && !isAdmin {
			continue
		}
		annotated := *doc
		annotated.DocID = docID
		documents = append(documents, &annotated)
	}

	sort.Slice(documents, func(i, j int) bool {
		return documents[i].DocID < documents[j].DocID
	})
	return documents, nil
}

// createUserFunc exposes user creation through the chaincode function table
func (l *Ledger) createUserFunc(args []string) (any, error) {
	if len(args) < 3 {
		return nil, Validationf("createUser requires username, password and organization")
	}
	username, password, organization := args[0], args[1], args[2]
	if username == "" || password == "" || organization == "" {
		return nil, Validationf("createUser requires non-empty username, password and organization")
	}

	roles := args[3:]
	userID := l.CreateUser(username, password, organization, roles)
	return userID, nil
}

// authenticateUserFunc exposes authentication through the chaincode function
// table. A credential mismatch yields a nil result, not an error.
func (l *Ledger) authenticateUserFunc(args []string) (any, error) {
	if len(args) < 2 {
		return nil, Validationf("authenticateUser requires username and password")
	}

	identity := l.AuthenticateUser(args[0], args[1])
	if identity == nil {
		return nil, nil
	}
	return identity, nil
}
