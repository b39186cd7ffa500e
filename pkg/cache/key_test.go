package cache

import (
	"net/url"
	"strings"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "simple path no params",
			key: CacheKey{
				Method: "GET",
				Path:   "/businesses/events/enrollments",
			},
			want: "explorium:GET:businesses/events/enrollments",
		},
		{
			name: "method is upper-cased",
			key: CacheKey{
				Method: "get",
				Path:   "/prospects/autocomplete/",
			},
			want: "explorium:GET:prospects/autocomplete",
		},
		{
			name: "query params sorted",
			key: CacheKey{
				Method: "GET",
				Path:   "/businesses/autocomplete",
				Query: url.Values{
					"query": []string{"acme"},
					"field": []string{"company_name"},
				},
			},
			want: "explorium:GET:businesses/autocomplete:field=company_name:query=acme",
		},
		{
			name: "repeated query values joined",
			key: CacheKey{
				Method: "GET",
				Path:   "/x",
				Query:  url.Values{"id": []string{"a", "b"}},
			},
			want: "explorium:GET:x:id=a,b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCacheKey_BodyHash(t *testing.T) {
	a := CacheKey{Method: "POST", Path: "/businesses/match", Body: []byte(`{"businesses_to_match":[{"name":"a"}]}`)}
	b := CacheKey{Method: "POST", Path: "/businesses/match", Body: []byte(`{"businesses_to_match":[{"name":"b"}]}`)}
	again := CacheKey{Method: "POST", Path: "/businesses/match", Body: []byte(`{"businesses_to_match":[{"name":"a"}]}`)}

	if a.String() == b.String() {
		t.Error("different bodies should produce different keys")
	}
	if a.String() != again.String() {
		t.Error("identical bodies should produce identical keys")
	}
	if !strings.HasPrefix(a.String(), "explorium:POST:businesses/match:body=") {
		t.Errorf("unexpected key layout: %s", a.String())
	}
	// 8 bytes of sha256, hex encoded
	if hash := strings.TrimPrefix(a.String(), "explorium:POST:businesses/match:body="); len(hash) != 16 {
		t.Errorf("body hash length = %d, want 16", len(hash))
	}
}
