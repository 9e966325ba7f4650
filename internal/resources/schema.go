/*-------------------------------------------------------------------------
 *
 * EV Dashboard MCP Relay
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"evdash-mcp/internal/database"
	"evdash-mcp/internal/mcp"
)

const (
	// SchemaURIScheme prefixes every table schema resource URI
	SchemaURIScheme = "pg://"

	// SchemaPathSegment terminates every table schema resource URI
	SchemaPathSegment = "schema"
)

// Catalog is the slice of the database client the provider needs
type Catalog interface {
	ListTables(ctx context.Context) ([]string, error)
	TableColumns(ctx context.Context, tableName string) ([]database.Column, error)
}

// Provider exposes one schema resource per table in the public schema.
// Descriptors are generated from the live catalog on every call and
// never cached, so the list is always current.
type Provider struct {
	catalog Catalog
}

// NewProvider creates a schema resource provider
func NewProvider(catalog Catalog) *Provider {
	return &Provider{catalog: catalog}
}

// SchemaURI builds the resource URI for a table
func SchemaURI(tableName string) string {
	return SchemaURIScheme + tableName + "/" + SchemaPathSegment
}

// ParseSchemaURI extracts the table name from a schema resource URI
func ParseSchemaURI(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, SchemaURIScheme)
	if !ok {
		return "", fmt.Errorf("invalid resource URI %q: expected scheme %q", uri, SchemaURIScheme)
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != SchemaPathSegment {
		return "", fmt.Errorf("invalid resource URI %q: expected %s<table>/%s", uri, SchemaURIScheme, SchemaPathSegment)
	}

	return parts[0], nil
}

// List returns one descriptor per public table
func (p *Provider) List(ctx context.Context) ([]mcp.Resource, error) {
	tables, err := p.catalog.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	resources := make([]mcp.Resource, 0, len(tables))
	for _, table := range tables {
		resources = append(resources, mcp.Resource{
			URI:      SchemaURI(table),
			Name:     fmt.Sprintf("%q database schema", table),
			MimeType: "application/json",
		})
	}

	return resources, nil
}

// Read returns the column list of one table as JSON content
func (p *Provider) Read(ctx context.Context, uri string) (mcp.ResourceContent, error) {
	tableName, err := ParseSchemaURI(uri)
	if err != nil {
		return mcp.ResourceContent{}, err
	}

	columns, err := p.catalog.TableColumns(ctx, tableName)
	if err != nil {
		return mcp.ResourceContent{}, err
	}

	text, err := json.MarshalIndent(columns, "", "  ")
	if err != nil {
		return mcp.ResourceContent{}, fmt.Errorf("failed to encode columns: %w", err)
	}

	return mcp.NewResourceContent(uri, "application/json", string(text)), nil
}
