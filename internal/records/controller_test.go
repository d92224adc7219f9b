package records

import (
	"context"
	"errors"
	"testing"

	"nursery-tracker/internal/domain"
)

type fakeAPI struct {
	listCalls   int
	createCalls int
	deleteCalls int

	listResult []domain.Record
	listErr    error
	createErr  error
	deleteErr  error

	lastBody map[string]any
	lastPath string
}

func (f *fakeAPI) ListRecords(_ context.Context, path string) ([]domain.Record, error) {
	f.listCalls++
	f.lastPath = path
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listResult, nil
}

func (f *fakeAPI) CreateRecord(_ context.Context, path string, body map[string]any) (domain.Record, error) {
	f.createCalls++
	f.lastPath = path
	f.lastBody = body
	if f.createErr != nil {
		return domain.Record{}, f.createErr
	}
	return domain.Record{ID: "new-id"}, nil
}

func (f *fakeAPI) DeleteRecord(_ context.Context, path, id string) error {
	f.deleteCalls++
	f.lastPath = path
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return nil
}

func deadEntity(t *testing.T) Entity {
	t.Helper()
	entity, ok := ByName("dead")
	if !ok {
		t.Fatal("dead entity descriptor missing")
	}
	return entity
}

func fillValidForm(c *Controller) {
	c.OpenForm()
	c.SetField("date", "2026-08-26")
	c.SetField("type", "Oak")
	c.SetField("quantity", "10")
}

func TestCreateValidationBlocksNetworkCall(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*Controller)
		field string
	}{
		{
			name: "missing required field",
			setup: func(c *Controller) {
				c.OpenForm()
				c.SetField("date", "2026-08-26")
				c.SetField("quantity", "10")
			},
			field: "type",
		},
		{
			name: "non-numeric quantity",
			setup: func(c *Controller) {
				fillValidForm(c)
				c.SetField("quantity", "ten")
			},
			field: "quantity",
		},
		{
			name: "negative quantity",
			setup: func(c *Controller) {
				fillValidForm(c)
				c.SetField("quantity", "-3")
			},
			field: "quantity",
		},
		{
			name: "malformed date",
			setup: func(c *Controller) {
				fillValidForm(c)
				c.SetField("date", "26/08/2026")
			},
			field: "date",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{}
			ctrl := NewController(deadEntity(t), api, nil, nil)
			tc.setup(ctrl)

			err := ctrl.Create(context.Background())

			var validation *ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validation.Field != tc.field {
				t.Errorf("expected error on field %q, got %q", tc.field, validation.Field)
			}
			if api.createCalls != 0 || api.listCalls != 0 {
				t.Errorf("expected no network calls, got create=%d list=%d", api.createCalls, api.listCalls)
			}
			if !ctrl.FormOpen() {
				t.Error("form should stay open after a validation failure")
			}
			if len(ctrl.Records()) != 0 {
				t.Error("cached list should be unchanged")
			}
		})
	}
}

func TestCreateSuccessClearsFormAndReloads(t *testing.T) {
	api := &fakeAPI{
		listResult: []domain.Record{{ID: "new-id", Date: "2026-08-26", Type: "Oak", Quantity: 10}},
	}
	ctrl := NewController(deadEntity(t), api, nil, nil)
	fillValidForm(ctrl)

	if err := ctrl.Create(context.Background()); err != nil {
		t.Fatalf("create: %v", err)
	}

	if api.createCalls != 1 {
		t.Fatalf("expected 1 create call, got %d", api.createCalls)
	}
	if api.listCalls != 1 {
		t.Fatalf("expected a reload after create, got %d list calls", api.listCalls)
	}
	if ctrl.FormOpen() {
		t.Error("form should be closed after a successful create")
	}
	if len(ctrl.FormValues()) != 0 {
		t.Errorf("form values should be cleared, got %v", ctrl.FormValues())
	}

	got := ctrl.Records()
	if len(got) != 1 || got[0].ID != "new-id" {
		t.Fatalf("expected the new record in the cache, got %+v", got)
	}

	if api.lastBody["quantity"] != 10 {
		t.Errorf("quantity should be submitted as an integer, got %T %v", api.lastBody["quantity"], api.lastBody["quantity"])
	}
	if api.lastBody["user_id"] != "temp" {
		t.Errorf("create body should carry the placeholder user_id, got %v", api.lastBody["user_id"])
	}
}

func TestCreateBackendFailureKeepsFormIntact(t *testing.T) {
	api := &fakeAPI{createErr: errors.New("boom")}
	ctrl := NewController(deadEntity(t), api, nil, nil)
	fillValidForm(ctrl)

	if err := ctrl.Create(context.Background()); err == nil {
		t.Fatal("expected create to fail")
	}

	if !ctrl.FormOpen() {
		t.Error("form should stay open after a backend failure")
	}
	values := ctrl.FormValues()
	if values["type"] != "Oak" || values["quantity"] != "10" {
		t.Errorf("entered values should be preserved, got %v", values)
	}
	if api.listCalls != 0 {
		t.Errorf("no reload expected after a failed create, got %d", api.listCalls)
	}
}

func TestLoadFailureKeepsPreviousList(t *testing.T) {
	api := &fakeAPI{listResult: []domain.Record{{ID: "a"}, {ID: "b"}}}
	ctrl := NewController(deadEntity(t), api, nil, nil)

	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	api.listErr = errors.New("backend down")
	if err := ctrl.Load(context.Background()); err == nil {
		t.Fatal("expected load to fail")
	}

	if got := ctrl.Records(); len(got) != 2 {
		t.Fatalf("previous list should survive a failed load, got %+v", got)
	}
}

func TestDeleteCancelledIssuesNoNetworkCall(t *testing.T) {
	api := &fakeAPI{listResult: []domain.Record{{ID: "a"}}}
	ctrl := NewController(deadEntity(t), api, func(string) bool { return false }, nil)

	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	listCallsBefore := api.listCalls

	err := ctrl.Delete(context.Background(), "a")
	if !errors.Is(err, ErrDeleteCancelled) {
		t.Fatalf("expected ErrDeleteCancelled, got %v", err)
	}
	if api.deleteCalls != 0 {
		t.Errorf("expected no delete call, got %d", api.deleteCalls)
	}
	if api.listCalls != listCallsBefore {
		t.Errorf("expected no reload, got %d extra", api.listCalls-listCallsBefore)
	}
	if got := ctrl.Records(); len(got) != 1 {
		t.Fatalf("list should be unchanged, got %+v", got)
	}
}

func TestDeleteConfirmedReloads(t *testing.T) {
	asked := ""
	api := &fakeAPI{}
	ctrl := NewController(deadEntity(t), api, func(id string) bool {
		asked = id
		return true
	}, nil)

	if err := ctrl.Delete(context.Background(), "rec-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if asked != "rec-1" {
		t.Errorf("confirmer should receive the record id, got %q", asked)
	}
	if api.deleteCalls != 1 || api.listCalls != 1 {
		t.Errorf("expected delete then reload, got delete=%d list=%d", api.deleteCalls, api.listCalls)
	}
}

func TestDeleteBackendFailureDoesNotReload(t *testing.T) {
	api := &fakeAPI{deleteErr: errors.New("nope")}
	ctrl := NewController(deadEntity(t), api, func(string) bool { return true }, nil)

	if err := ctrl.Delete(context.Background(), "rec-1"); err == nil {
		t.Fatal("expected delete to fail")
	}
	if api.listCalls != 0 {
		t.Errorf("no reload expected after a failed delete, got %d", api.listCalls)
	}
}
