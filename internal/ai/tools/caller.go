// Package tools builds the capability-scoped tool set offered to the model.
//
// A Registry is built per request from a Caller. Every query a tool runs is
// filtered by the tenant bound at construction, and client tools are further
// restricted to the matters linked to the caller's contact.
package tools

import "prima-facie-go/internal/model"

// Caller is the identity a registry is scoped to. The set of implementations
// is closed: StaffCaller and ClientCaller.
type Caller interface {
	TenantID() string
	// ActorID is the profile id that authored the request.
	ActorID() string
	sealed()
}

// StaffCaller is a firm member (admin, lawyer or staff).
type StaffCaller struct {
	LawFirmID string
	UserID    string
	Role      model.UserType
}

func (c StaffCaller) TenantID() string { return c.LawFirmID }
func (c StaffCaller) ActorID() string  { return c.UserID }
func (StaffCaller) sealed()            {}

// ClientCaller is a portal user acting for one contact.
type ClientCaller struct {
	LawFirmID string
	UserID    string
	ContactID string
}

func (c ClientCaller) TenantID() string { return c.LawFirmID }
func (c ClientCaller) ActorID() string  { return c.UserID }
func (ClientCaller) sealed()            {}

// CallerFromProfile maps a loaded profile to its caller variant. ok is false
// for a client profile without a contact or an unknown user type.
func CallerFromProfile(p *model.Profile) (Caller, bool) {
	switch p.UserType {
	case model.UserTypeAdmin, model.UserTypeLawyer, model.UserTypeStaff:
		return StaffCaller{LawFirmID: p.LawFirmID, UserID: p.ID, Role: p.UserType}, true
	case model.UserTypeClient:
		if p.ContactID == nil || *p.ContactID == "" {
			return nil, false
		}
		return ClientCaller{LawFirmID: p.LawFirmID, UserID: p.ID, ContactID: *p.ContactID}, true
	}
	return nil, false
}
