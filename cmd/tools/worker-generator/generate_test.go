package main

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketing-workers/pkg/registry"
)

func testActivity() *registry.Activity {
	return &registry.Activity{
		ID:          "publish-digest",
		DisplayName: "Publish Digest",
		Description: "Publishes the weekly content digest.",
		Category:    "content",
		TaskType:    "publish-digest",
		Timeout:     "45s",
		InputSchema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"workspaceId"},
			"properties": map[string]interface{}{
				"workspaceId": map[string]interface{}{"type": "string"},
				"limit":       map[string]interface{}{"type": "integer"},
				"imageUrl":    map[string]interface{}{"type": []interface{}{"null", "string"}},
			},
		},
		OutputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"published": map[string]interface{}{"type": "boolean"},
				"posts":     map[string]interface{}{"type": []interface{}{"array", "null"}},
			},
		},
	}
}

func TestNewWorkerData(t *testing.T) {
	data := NewWorkerData(testActivity())

	assert.Equal(t, "publishdigest", data.PackageName)
	assert.Equal(t, filepath.Join("content", "publish-digest"), data.Dir)
	assert.Equal(t, []string{"workspaceId"}, data.Required)
	assert.Equal(t, []Field{
		{Name: "ImageURL", GoType: "string", JSONTag: "imageUrl,omitempty"},
		{Name: "Limit", GoType: "int", JSONTag: "limit,omitempty"},
		{Name: "WorkspaceID", GoType: "string", JSONTag: "workspaceId"},
	}, data.InputFields)
	assert.Equal(t, "[]interface{}", data.OutputFields[0].GoType)
}

func TestGenerate_WritesParseableSources(t *testing.T) {
	dir := t.TempDir()
	files, err := Generate(dir, NewWorkerData(testActivity()), false)
	require.NoError(t, err)
	require.Len(t, files, 4)

	fset := token.NewFileSet()
	for _, f := range files {
		src, err := os.ReadFile(f)
		require.NoError(t, err)
		file, err := parser.ParseFile(fset, f, src, 0)
		require.NoError(t, err, f)
		assert.Equal(t, "publishdigest", file.Name.Name)
	}

	models, err := os.ReadFile(filepath.Join(dir, "content", "publish-digest", "models.go"))
	require.NoError(t, err)
	assert.Contains(t, string(models), "WorkspaceID string `json:\"workspaceId\"`")
}

func TestGenerate_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	data := NewWorkerData(testActivity())
	_, err := Generate(dir, data, false)
	require.NoError(t, err)

	_, err = Generate(dir, data, false)
	assert.Error(t, err)

	_, err = Generate(dir, data, true)
	assert.NoError(t, err)
}
