package local_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/io/local"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/schema"
)

func TestReadRecordsCSV(t *testing.T) {
	contract := schema.Contract{Source: "google", Required: []string{"name", "place_link"}}

	t.Run("reads rows keyed by header", func(t *testing.T) {
		in := "Name,place_link,rating\nLouvre,https://maps/1,4.7\nOrsay,https://maps/2\n"
		got, err := local.ReadRecordsCSV(strings.NewReader(in), contract)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(got))
		}
		if got[0].Str("name") != "Louvre" || got[0].Str("rating") != "4.7" {
			t.Fatalf("unexpected row[0]: %v", got[0].Keys())
		}
		if v, ok := got[1].Get("rating"); !ok || v.Text() != "" {
			t.Fatalf("short row should pad missing cells, got %#v ok=%v", v, ok)
		}
	})

	t.Run("missing header column errors", func(t *testing.T) {
		in := "name,other\nx,y\n"
		_, err := local.ReadRecordsCSV(strings.NewReader(in), contract)
		var mce *schema.MissingColumnError
		if !errors.As(err, &mce) || mce.Column != "place_link" {
			t.Fatalf("expected missing place_link, got %v", err)
		}
	})

	t.Run("empty input with requirements errors", func(t *testing.T) {
		_, err := local.ReadRecordsCSV(strings.NewReader(""), contract)
		if err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestWriteRecordsCSV(t *testing.T) {
	r := record.New()
	r.Set("name", record.Text("Louvre"))
	r.Set("payment_methods", record.List([]string{"Credit Card", "Cash"}))
	r.Set("address", record.Null())

	var buf bytes.Buffer
	if err := local.WriteRecordsCSV(&buf, []string{"name", "address", "payment_methods"}, []*record.Record{r}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "name,address,payment_methods\nLouvre,,Credit Card | Cash\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestReadRecordsJSON(t *testing.T) {
	in := `[
  {"url": "u1", "name": "Panthéon", "payment_methods": ["Carte bancaire", null], "ticket_price": 13},
  {"name": "Arc de triomphe", "url": "u2", "address": null}
]`
	got, err := local.ReadRecordsJSON(strings.NewReader(in), schema.Contract{Source: "site", Required: []string{"name", "address"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if keys := got[0].Keys(); strings.Join(keys, ",") != "url,name,payment_methods,ticket_price" {
		t.Fatalf("key order not preserved: %v", keys)
	}
	if items := got[0].Value("payment_methods").Items(); len(items) != 2 || items[0] != "Carte bancaire" {
		t.Fatalf("unexpected list: %#v", items)
	}
	if got[0].Str("ticket_price") != "13" {
		t.Fatalf("numbers should render as text, got %q", got[0].Str("ticket_price"))
	}
	if !got[1].Value("address").IsNull() {
		t.Fatalf("null should decode as null")
	}
}

func TestWriteRecordsJSON(t *testing.T) {
	r := record.New()
	r.Set("name", record.Text("Sainte-Chapelle"))
	r.Set("google_rating", record.Null())

	var buf bytes.Buffer
	if err := local.WriteRecordsJSON(&buf, []*record.Record{r}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "[\n  {\n    \"name\": \"Sainte-Chapelle\",\n    \"google_rating\": null\n  }\n]\n"
	if buf.String() != want {
		t.Fatalf("unexpected json:\n%s", buf.String())
	}
}
