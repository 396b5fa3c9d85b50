package config

import (
	"os"
	"testing"

	"github.com/frankban/quicktest"
)

func TestLoadPlan_ParsesColumnsAndKinds(t *testing.T) {
	c := quicktest.New(t)
	content := `
# demo plan
comments: id, body, reactions:json, created_at:millis
flags: id, enabled:bool
`
	tmpfile, err := os.CreateTemp("", "testplan*.conf")
	c.Assert(err, quicktest.IsNil)
	defer os.Remove(tmpfile.Name())
	_, err = tmpfile.WriteString(content)
	c.Assert(err, quicktest.IsNil)
	tmpfile.Close()

	cfg := &Config{}
	err = LoadPlan(cfg, tmpfile.Name())
	c.Assert(err, quicktest.IsNil)
	c.Assert(cfg.Plan, quicktest.HasLen, 2)
	c.Assert(cfg.Plan[0].Name, quicktest.Equals, "comments")
	c.Assert(cfg.Plan[0].Columns, quicktest.DeepEquals, []string{"id", "body", "reactions", "created_at"})
	c.Assert(cfg.Plan[0].Conversions, quicktest.DeepEquals, map[string]ConversionKind{
		"reactions":  ConvertJSON,
		"created_at": ConvertMillis,
	})
	c.Assert(cfg.Plan[0].PrimaryKey(), quicktest.Equals, "id")
	c.Assert(cfg.Plan[1].Conversions, quicktest.DeepEquals, map[string]ConversionKind{
		"enabled": ConvertBool,
	})
}

func TestLoadPlan_UnknownKind(t *testing.T) {
	c := quicktest.New(t)
	tmpfile, err := os.CreateTemp("", "testplan*.conf")
	c.Assert(err, quicktest.IsNil)
	defer os.Remove(tmpfile.Name())
	_, err = tmpfile.WriteString("comments: id, reactions:jsonb\n")
	c.Assert(err, quicktest.IsNil)
	tmpfile.Close()

	cfg := &Config{}
	err = LoadPlan(cfg, tmpfile.Name())
	c.Assert(err, quicktest.ErrorMatches, `table comments: unknown conversion kind "jsonb" for column reactions`)
}

func TestLoadPlan_PrimaryKeyConversionRejected(t *testing.T) {
	c := quicktest.New(t)
	tmpfile, err := os.CreateTemp("", "testplan*.conf")
	c.Assert(err, quicktest.IsNil)
	defer os.Remove(tmpfile.Name())
	_, err = tmpfile.WriteString("flags: id:bool, enabled\n")
	c.Assert(err, quicktest.IsNil)
	tmpfile.Close()

	cfg := &Config{}
	err = LoadPlan(cfg, tmpfile.Name())
	c.Assert(err, quicktest.ErrorMatches, "invalid plan: table flags: primary key column id cannot have a conversion")
}

func TestLoadPlan_InvalidLineFormat(t *testing.T) {
	c := quicktest.New(t)
	tmpfile, err := os.CreateTemp("", "testplan*.conf")
	c.Assert(err, quicktest.IsNil)
	defer os.Remove(tmpfile.Name())
	_, err = tmpfile.WriteString("no columns here\n")
	c.Assert(err, quicktest.IsNil)
	tmpfile.Close()

	cfg := &Config{}
	err = LoadPlan(cfg, tmpfile.Name())
	c.Assert(err, quicktest.ErrorMatches, "invalid plan line format .*")
}

func TestLoadPlan_MissingFile(t *testing.T) {
	c := quicktest.New(t)
	cfg := &Config{}
	err := LoadPlan(cfg, "/nonexistent/plan.conf")
	c.Assert(err, quicktest.ErrorMatches, "failed to read plan file: .*")
}

func TestLoadPlan_HandlesEmptyFile(t *testing.T) {
	c := quicktest.New(t)
	tmpfile, err := os.CreateTemp("", "testplan*.conf")
	c.Assert(err, quicktest.IsNil)
	defer os.Remove(tmpfile.Name())
	tmpfile.Close()

	cfg := &Config{}
	err = LoadPlan(cfg, tmpfile.Name())
	c.Assert(err, quicktest.IsNil)
	c.Assert(cfg.Plan, quicktest.HasLen, 0)
}

func TestDefaultPlan_IsValid(t *testing.T) {
	c := quicktest.New(t)
	plan := DefaultPlan()
	c.Assert(plan, quicktest.HasLen, 5)
	for _, spec := range plan {
		spec := spec
		c.Assert(spec.Validate(), quicktest.IsNil)
		c.Assert(spec.PrimaryKey(), quicktest.Equals, "id")
	}
	c.Assert(plan[0].Name, quicktest.Equals, "comments")
	c.Assert(plan[4].Name, quicktest.Equals, "repositories")
}

func TestTableSpecValidate_DuplicateColumn(t *testing.T) {
	c := quicktest.New(t)
	spec := TableSpec{Name: "users", Columns: []string{"id", "id"}}
	c.Assert(spec.Validate(), quicktest.ErrorMatches, "table users has duplicate column id")
}

func TestTableSpecValidate_UnknownConversionColumn(t *testing.T) {
	c := quicktest.New(t)
	spec := TableSpec{
		Name:        "users",
		Columns:     []string{"id", "name"},
		Conversions: map[string]ConversionKind{"email": ConvertJSON},
	}
	c.Assert(spec.Validate(), quicktest.ErrorMatches, "table users has a conversion for unknown column email")
}
