package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pulpoai/agentcore/pkg/types"
)

const sampleManifestYAML = `
vertical: services
version: "1"
tools:
  - name: get_available_services
    description: List services offered
    scope: read
    tier_required: basic
    transport:
      kind: internal
      internal_name: get_available_services
  - name: book_appointment
    description: Book an appointment
    scope: write
    tier_required: pro
    requires_slots: [service_type, preferred_date, preferred_time]
    args_schema:
      type: object
      required: [service_type]
    transport:
      kind: http
      url: https://example.test/book
      method: POST
      retry_safe: false
`

func writeTempManifest(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "services.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write temp manifest: %v", err)
	}
	return path
}

func TestLoad_ParsesToolsAndTransport(t *testing.T) {
	path := writeTempManifest(t, sampleManifestYAML)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Vertical != types.VerticalServices {
		t.Errorf("want vertical services, got %s", m.Vertical)
	}
	if len(m.Tools) != 2 {
		t.Fatalf("want 2 tools, got %d", len(m.Tools))
	}

	book, ok := m.Lookup("book_appointment")
	if !ok {
		t.Fatal("want book_appointment present")
	}
	if book.Scope != types.ScopeWrite || book.TierRequired != types.TierPro {
		t.Errorf("book_appointment scope/tier mismatch: %+v", book)
	}
	if len(book.RequiresSlots) != 3 {
		t.Errorf("want 3 required slots, got %v", book.RequiresSlots)
	}
	if book.Transport.Kind != types.TransportHTTP || book.Transport.URL == "" {
		t.Errorf("want http transport with url, got %+v", book.Transport)
	}
}

func TestLoad_DefaultsArgsSchemaToEmptyObject(t *testing.T) {
	path := writeTempManifest(t, sampleManifestYAML)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	svc, _ := m.Lookup("get_available_services")
	if string(svc.ArgsSchema) != `{"type":"object"}` {
		t.Errorf("want default empty-object schema, got %s", svc.ArgsSchema)
	}
}

func TestLoad_MissingVerticalFails(t *testing.T) {
	path := writeTempManifest(t, `
version: "1"
tools: []
`)
	if _, err := Load(path); err == nil {
		t.Fatal("want error for missing vertical")
	}
}

func TestLoad_MissingToolNameFails(t *testing.T) {
	path := writeTempManifest(t, `
vertical: services
version: "1"
tools:
  - description: nameless tool
    scope: read
`)
	if _, err := Load(path); err == nil {
		t.Fatal("want error for tool missing a name")
	}
}

func TestLoad_InvalidArgsSchemaFails(t *testing.T) {
	path := writeTempManifest(t, `
vertical: services
version: "1"
tools:
  - name: broken_tool
    scope: read
    args_schema:
      type: not-a-real-json-schema-type
`)
	if _, err := Load(path); err == nil {
		t.Fatal("want error for invalid args_schema")
	}
}

func TestLoadDir_KeysByVertical(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "services.yaml"), []byte(sampleManifestYAML), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("not a manifest"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	manifests, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(manifests) != 1 {
		t.Fatalf("want 1 manifest (non-yaml file skipped), got %d", len(manifests))
	}
	if _, ok := manifests[types.VerticalServices]; !ok {
		t.Fatal("want services manifest present")
	}
}
