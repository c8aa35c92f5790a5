// Package testfixture opens a migrated sqlite database and seeds two firms
// for package tests.
package testfixture

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"prima-facie-go/internal/model"
	"prima-facie-go/pkg/database"
)

// OpenDB returns a migrated sqlite database in a temp dir.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.OpenGorm("sqlite", filepath.Join(t.TempDir(), "prima.db"))
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Firm is the seeded primary tenant.
//
// Ana is linked to MatterA only, Bruno to MatterB only. Lawyer is responsible
// for MatterA; MatterB has no responsible lawyer.
type Firm struct {
	Firm model.LawFirm

	Admin  model.Profile
	Lawyer model.Profile
	Staff  model.Profile

	Ana          model.Contact
	Bruno        model.Contact
	AnaProfile   model.Profile
	BrunoProfile model.Profile

	MatterA model.Matter
	MatterB model.Matter

	TaskA model.Task
	TaskB model.Task

	InvoiceA model.Invoice
	InvoiceB model.Invoice

	DocumentA model.Document
	DocumentB model.Document

	// Other is a second tenant with one matter, one contact and an admin.
	Other       model.LawFirm
	OtherAdmin  model.Profile
	OtherClient model.Contact
	OtherMatter model.Matter
}

// Seed inserts the fixture. settings is stored verbatim as the firm settings
// column; pass nil for defaults.
func Seed(t testing.TB, db *gorm.DB, settings []byte) *Firm {
	t.Helper()
	f := &Firm{}
	now := time.Now()
	deadline := now.Add(48 * time.Hour)

	f.Firm = model.LawFirm{Name: "Silva & Associados", Settings: datatypes.JSON(settings)}
	create(t, db, &f.Firm)
	firm := f.Firm.ID

	f.Admin = model.Profile{LawFirmID: firm, FullName: "Carla Admin", Email: "carla@silva.adv.br", UserType: model.UserTypeAdmin, CreatedAt: now.Add(-3 * time.Hour)}
	f.Lawyer = model.Profile{LawFirmID: firm, FullName: "Dr. Paulo Silva", Email: "paulo@silva.adv.br", UserType: model.UserTypeLawyer, CreatedAt: now.Add(-2 * time.Hour)}
	f.Staff = model.Profile{LawFirmID: firm, FullName: "Rita Secretária", Email: "rita@silva.adv.br", UserType: model.UserTypeStaff, CreatedAt: now.Add(-time.Hour)}
	create(t, db, &f.Admin)
	create(t, db, &f.Lawyer)
	create(t, db, &f.Staff)

	f.Ana = model.Contact{LawFirmID: firm, FullName: "Ana Souza", Email: "ana@example.com"}
	f.Bruno = model.Contact{LawFirmID: firm, FullName: "Bruno Lima", Email: "bruno@example.com"}
	create(t, db, &f.Ana)
	create(t, db, &f.Bruno)

	f.AnaProfile = model.Profile{LawFirmID: firm, FullName: "Ana Souza", UserType: model.UserTypeClient, ContactID: &f.Ana.ID}
	f.BrunoProfile = model.Profile{LawFirmID: firm, FullName: "Bruno Lima", UserType: model.UserTypeClient, ContactID: &f.Bruno.ID}
	create(t, db, &f.AnaProfile)
	create(t, db, &f.BrunoProfile)

	f.MatterA = model.Matter{LawFirmID: firm, MatterNumber: "2024-001", Title: "Ação trabalhista Ana", Status: model.MatterStatusActive, Area: "trabalhista", ResponsibleLawyerID: &f.Lawyer.ID, NextDeadline: &deadline}
	f.MatterB = model.Matter{LawFirmID: firm, MatterNumber: "2024-002", Title: "Inventário Bruno", Status: model.MatterStatusOnHold, Area: "família"}
	create(t, db, &f.MatterA)
	create(t, db, &f.MatterB)
	create(t, db, &model.MatterContact{MatterID: f.MatterA.ID, ContactID: f.Ana.ID, LawFirmID: firm})
	create(t, db, &model.MatterContact{MatterID: f.MatterB.ID, ContactID: f.Bruno.ID, LawFirmID: firm})

	f.TaskA = model.Task{LawFirmID: firm, MatterID: &f.MatterA.ID, Title: "Protocolar petição inicial", Status: "pending", Priority: "high", AssignedTo: &f.Lawyer.ID}
	f.TaskB = model.Task{LawFirmID: firm, MatterID: &f.MatterB.ID, Title: "Levantar certidões", Status: "pending", Priority: "medium", AssignedTo: &f.Staff.ID}
	create(t, db, &f.TaskA)
	create(t, db, &f.TaskB)

	f.InvoiceA = model.Invoice{LawFirmID: firm, MatterID: &f.MatterA.ID, ContactID: &f.Ana.ID, InvoiceNumber: "FAT-001", Status: "sent", TotalAmount: 1500}
	f.InvoiceB = model.Invoice{LawFirmID: firm, MatterID: &f.MatterB.ID, ContactID: &f.Bruno.ID, InvoiceNumber: "FAT-002", Status: "sent", TotalAmount: 3200}
	create(t, db, &f.InvoiceA)
	create(t, db, &f.InvoiceB)

	f.DocumentA = model.Document{LawFirmID: firm, MatterID: &f.MatterA.ID, Name: "procuracao-ana.pdf", StoragePath: firm + "/procuracao-ana.pdf", MimeType: "application/pdf", SizeBytes: 1024}
	f.DocumentB = model.Document{LawFirmID: firm, MatterID: &f.MatterB.ID, Name: "certidao-bruno.pdf", StoragePath: firm + "/certidao-bruno.pdf", MimeType: "application/pdf", SizeBytes: 2048}
	create(t, db, &f.DocumentA)
	create(t, db, &f.DocumentB)

	f.Other = model.LawFirm{Name: "Outro Escritório"}
	create(t, db, &f.Other)
	f.OtherAdmin = model.Profile{LawFirmID: f.Other.ID, FullName: "Outra Admin", UserType: model.UserTypeAdmin}
	create(t, db, &f.OtherAdmin)
	f.OtherClient = model.Contact{LawFirmID: f.Other.ID, FullName: "Cliente Externo"}
	create(t, db, &f.OtherClient)
	f.OtherMatter = model.Matter{LawFirmID: f.Other.ID, Title: "Processo de outro escritório", Status: model.MatterStatusActive, NextDeadline: &deadline}
	create(t, db, &f.OtherMatter)
	create(t, db, &model.MatterContact{MatterID: f.OtherMatter.ID, ContactID: f.OtherClient.ID, LawFirmID: f.Other.ID})

	return f
}

func create(t testing.TB, db *gorm.DB, v interface{}) {
	t.Helper()
	require.NoError(t, db.Create(v).Error)
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
