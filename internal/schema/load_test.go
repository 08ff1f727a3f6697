package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlSchema = `
tables:
  - name: users
    rows: 25
    fields:
      - name: id
        type: int
        primary_key: true
      - name: email
        rule: email
        unique: true
      - name: plan
        type: text
        domain: [free, pro, team]
        weights: [5, 2, 1]
      - name: signup
        type: timestamp
        nullable: true
        null_probability: 0.25
        params:
          from: "2020-01-01"
  - name: orders
    fields:
      - name: user_id
        type: integer
        references: {table: users, field: id, cardinality: 2}
      - name: amount
        type: float
        min: 1
        max: 99.5
`

func TestParseYAML(t *testing.T) {
	s, err := Parse([]byte(yamlSchema), FormatYAML)
	require.NoError(t, err)
	require.Len(t, s.Tables, 2)

	users := s.Table("users")
	assert.Equal(t, 25, users.Rows)
	assert.Equal(t, TypeInteger, users.Field("id").Type)
	assert.True(t, users.Field("id").PrimaryKey)
	assert.Equal(t, TypeString, users.Field("email").Type)
	assert.Equal(t, []any{"free", "pro", "team"}, users.Field("plan").Domain)
	assert.Equal(t, []float64{5, 2, 1}, users.Field("plan").Weights)
	assert.Equal(t, TypeDate, users.Field("signup").Type)
	assert.Equal(t, 0.25, users.Field("signup").NullProbability)
	assert.Equal(t, "2020-01-01", users.Field("signup").Params["from"])

	orders := s.Table("orders")
	assert.Equal(t, 0, orders.Rows)
	assert.Equal(t, &Reference{Table: "users", Field: "id", Cardinality: 2}, orders.Field("user_id").References)
	assert.Equal(t, TypeDecimal, orders.Field("amount").Type)
	require.NotNil(t, orders.Field("amount").Max)
	assert.Equal(t, 99.5, *orders.Field("amount").Max)

	s.ApplyCounts(10, nil)
	assert.NoError(t, Validate(s, nil))
}

func TestParseJSON(t *testing.T) {
	doc := `{"tables": [{"name": "tags", "rows": 3, "fields": [
		{"name": "id", "type": "string", "primary_key": true, "length": 4},
		{"name": "label", "type": "string", "rule": "word", "length": 12}
	]}]}`

	s, err := Parse([]byte(doc), FormatJSON)
	require.NoError(t, err)
	tags := s.Table("tags")
	require.NotNil(t, tags)
	require.NotNil(t, tags.Field("id").Length)
	assert.Equal(t, 4, *tags.Field("id").Length)
	assert.Equal(t, "word", tags.Field("label").Rule)

	_, err = Parse([]byte(`{"tables": [], "extra": true}`), FormatJSON)
	assert.Error(t, err)
}

func TestParseTabular(t *testing.T) {
	doc := strings.Join([]string{
		"table,rows,name,datatype,rule,length,domain,weights,completeness,unique,pk,references",
		"authors,4,id,integer,,,,,,,true,",
		"authors,,name,string,name,16,,,0.9,,,",
		"books,12,author_id,integer,,,,,,,,authors.id",
		"books,,genre,string,,,fiction|poetry,3|1,,,,",
		",,,,,,,,,,,",
		"books,,isbn,string,bothify,,,,,true,,",
	}, "\n")

	s, err := ParseTabular(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"authors", "books"}, s.TableNames())

	authors := s.Table("authors")
	assert.Equal(t, 4, authors.Rows)
	assert.True(t, authors.Field("id").PrimaryKey)
	name := authors.Field("name")
	assert.True(t, name.Nullable)
	assert.InDelta(t, 0.1, name.NullProbability, 1e-9)
	assert.Equal(t, 16, *name.Length)

	books := s.Table("books")
	assert.Equal(t, 12, books.Rows)
	assert.Equal(t, &Reference{Table: "authors", Field: "id"}, books.Field("author_id").References)
	assert.Equal(t, []any{"fiction", "poetry"}, books.Field("genre").Domain)
	assert.Equal(t, []float64{3, 1}, books.Field("genre").Weights)
	assert.True(t, books.Field("isbn").Unique)

	assert.NoError(t, Validate(s, nil))
}

func TestParseTabularErrors(t *testing.T) {
	_, err := ParseTabular(strings.NewReader("datatype\nstring\n"))
	assert.ErrorContains(t, err, `"name"`)

	_, err = ParseTabular(strings.NewReader("name,references\nx,users\n"))
	assert.ErrorContains(t, err, "table.field")

	_, err = ParseTabular(strings.NewReader("name,length\nx,long\n"))
	assert.ErrorContains(t, err, "line 2")
}

const ddlSchema = `
-- enum used by users.role
CREATE TYPE user_role AS ENUM ('admin', 'member', 'guest');

CREATE TABLE posts (
    id SERIAL PRIMARY KEY,
    author_id INTEGER NOT NULL REFERENCES users(id),
    title VARCHAR(120) NOT NULL,
    price DECIMAL(10,2),
    published BOOLEAN NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE TABLE users (
    id INTEGER NOT NULL,
    email VARCHAR(255) NOT NULL,
    role user_role NOT NULL,
    first_name TEXT,
    PRIMARY KEY (id)
);

CREATE TABLE comments (
    id UUID PRIMARY KEY,
    post_id INTEGER NOT NULL,
    content TEXT NOT NULL,
    CONSTRAINT fk_post FOREIGN KEY (post_id) REFERENCES posts(id)
);

CREATE UNIQUE INDEX idx_users_email ON users (email);
`

func TestParseDDL(t *testing.T) {
	s, err := ParseDDL(ddlSchema)
	require.NoError(t, err)
	assert.Equal(t, []string{"posts", "users", "comments"}, s.TableNames())

	posts := s.Table("posts")
	assert.True(t, posts.Field("id").PrimaryKey)
	assert.Equal(t, TypeInteger, posts.Field("id").Type)
	assert.Empty(t, posts.Field("id").Rule)
	assert.Equal(t, &Reference{Table: "users", Field: "id"}, posts.Field("author_id").References)
	assert.Equal(t, "title", posts.Field("title").Rule)
	assert.Equal(t, 120, *posts.Field("title").Length)
	assert.Equal(t, TypeDecimal, posts.Field("price").Type)
	assert.True(t, posts.Field("price").Nullable)
	assert.Equal(t, DefaultNullProbability, posts.Field("price").NullProbability)
	assert.Equal(t, TypeBoolean, posts.Field("published").Type)
	assert.Equal(t, TypeDate, posts.Field("created_at").Type)

	users := s.Table("users")
	assert.True(t, users.Field("id").PrimaryKey)
	assert.Empty(t, users.Field("id").Rule)
	assert.True(t, users.Field("email").Unique)
	assert.Equal(t, "email", users.Field("email").Rule)
	assert.Equal(t, []any{"admin", "member", "guest"}, users.Field("role").Domain)
	assert.Equal(t, "first_name", users.Field("first_name").Rule)

	comments := s.Table("comments")
	assert.Equal(t, "uuid", comments.Field("id").Rule)
	assert.Equal(t, &Reference{Table: "posts", Field: "id"}, comments.Field("post_id").References)
	assert.Empty(t, comments.Field("post_id").Rule)
	assert.Equal(t, "sentence", comments.Field("content").Rule)

	s.ApplyCounts(5, nil)
	assert.NoError(t, Validate(s, nil))
}

func TestParseDDLReferencedUniqueColumnIsNotNull(t *testing.T) {
	s, err := ParseDDL(`
CREATE TABLE accounts (id SERIAL PRIMARY KEY, handle VARCHAR(20) UNIQUE, bio TEXT);
CREATE TABLE follows (id SERIAL PRIMARY KEY, handle VARCHAR(20) NOT NULL REFERENCES accounts(handle));
`)
	require.NoError(t, err)

	accounts := s.Table("accounts")
	assert.False(t, accounts.Field("handle").Nullable)
	assert.Zero(t, accounts.Field("handle").NullProbability)
	assert.True(t, accounts.Field("bio").Nullable)

	s.ApplyCounts(5, nil)
	assert.NoError(t, Validate(s, nil))
}

func TestParseDDLWithoutTables(t *testing.T) {
	_, err := ParseDDL("CREATE INDEX foo ON bar (baz);")
	assert.Error(t, err)
}

func TestInferRule(t *testing.T) {
	tests := map[string]string{
		"contact_email": "email",
		"lastname":      "last_name",
		"company_name":  "company",
		"display_name":  "name",
		"username":      "word",
		"homepage_url":  "url",
		"mobile_phone":  "phone",
		"description":   "sentence",
		"misc":          "word",
	}
	for column, want := range tests {
		assert.Equal(t, want, InferRule(column, TypeString), column)
	}
	assert.Equal(t, "integer", InferRule("email_count", TypeInteger))
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "schema.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlSchema), 0o644))
	s, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Len(t, s.Tables, 2)

	sqlDir := filepath.Join(dir, "sql")
	require.NoError(t, os.Mkdir(sqlDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sqlDir, "001_users.sql"),
		[]byte("CREATE TABLE users (id SERIAL PRIMARY KEY, name TEXT NOT NULL)"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sqlDir, "002_posts.sql"),
		[]byte("CREATE TABLE posts (id SERIAL PRIMARY KEY, user_id INTEGER NOT NULL REFERENCES users(id));"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sqlDir, "README.md"), []byte("ignored"), 0o644))
	s, err = Load(sqlDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "posts"}, s.TableNames())

	_, err = Load(filepath.Join(dir, "schema.toml"))
	assert.Error(t, err)

	txt := filepath.Join(dir, "schema.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))
	_, err = Load(txt)
	assert.ErrorContains(t, err, "unsupported schema file")
}
