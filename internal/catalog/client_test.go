package catalog

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dor/internal/platform/config"
	"dor/pkg/platform/circuit"
)

// roundTripFunc hands back canned responses without a socket. Short reads
// against a real connection are covered by TestFetchBib_OverTCP.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string, declared int) *http.Response {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if declared >= 0 {
		h.Set("Content-Length", strconv.Itoa(declared))
	}
	return &http.Response{
		StatusCode:    status,
		Header:        h,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: -1,
	}
}

const bibBody = `{"resource":"/catalog/bib","key":"111","fields":{"bib":{"standard":"MARC21","type":"BIB",` +
	`"leader":"00956cem 2200229Ma 4500","fields":[` +
	`{"tag":"008","subfields":[{"code":"_","data":"041202s2000    ja nnn  s      f    eng d"}]},` +
	`{"tag":"245","inds":"41","subfields":[{"code":"a","data":"the title"}]}]}}}`

func testConfig() config.Catalog {
	return config.Catalog{
		JSONURL:          "http://symphony.example/symws/catalog/bib/key/{catkey}?includeFields=bib",
		BarcodeSearchURL: "http://searchworks.example/barcode/{barcode}",
		Headers:          map[string]string{"SD-Originating-App-ID": "DOR"},
		Timeout:          time.Second,
	}
}

func newTestClient(rt roundTripFunc, opts ...Option) *Client {
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: rt})}, opts...)
	return New(testConfig(), opts...)
}

func TestFetchBib(t *testing.T) {
	t.Run("body overhead bytes shorter than declared length succeeds", func(t *testing.T) {
		var seen *http.Request
		client := newTestClient(func(r *http.Request) (*http.Response, error) {
			seen = r
			return jsonResponse(http.StatusOK, bibBody, len(bibBody)+FramingOverhead), nil
		})

		bib, err := client.FetchBib(context.Background(), "111")
		require.NoError(t, err)

		require.NotNil(t, bib.Leader)
		assert.Equal(t, "00956cem 2200229Ma 4500", *bib.Leader)
		require.Len(t, bib.Fields, 2)
		assert.Equal(t, Indicators{"4", "1"}, bib.Fields[1].Inds)
		assert.Equal(t, "/symws/catalog/bib/key/111", seen.URL.Path)
		assert.Equal(t, "DOR", seen.Header.Get("SD-Originating-App-ID"))
	})

	t.Run("any other length fails with both counts", func(t *testing.T) {
		for _, declared := range []int{len(bibBody), len(bibBody) + FramingOverhead - 1, len(bibBody) - FramingOverhead, 10} {
			client := newTestClient(func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, bibBody, declared), nil
			})

			_, err := client.FetchBib(context.Background(), "111")
			var incomplete *RecordIncompleteError
			require.ErrorAs(t, err, &incomplete)
			assert.Equal(t, "111", incomplete.Catkey)
			assert.Equal(t, int64(declared), incomplete.Declared)
			assert.Equal(t, int64(declared-FramingOverhead), incomplete.Expected)
			assert.Equal(t, int64(len(bibBody)), incomplete.Actual)
			assert.Contains(t, err.Error(), strconv.Itoa(declared))
			assert.Contains(t, err.Error(), strconv.Itoa(len(bibBody)))
		}
	})

	t.Run("missing content length fails", func(t *testing.T) {
		client := newTestClient(func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, bibBody, -1), nil
		})

		_, err := client.FetchBib(context.Background(), "111")
		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, ErrorBadData, upstream.Category)
	})

	t.Run("404 reports record not found", func(t *testing.T) {
		client := newTestClient(func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusNotFound, `{}`, 2), nil
		})

		_, err := client.FetchBib(context.Background(), "666")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.False(t, IsUnavailable(err))
		assert.Contains(t, err.Error(), "Record not found in Symphony: 666")
	})

	t.Run("server error is an http error", func(t *testing.T) {
		client := newTestClient(func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusBadGateway, `oops`, 4), nil
		})

		_, err := client.FetchBib(context.Background(), "111")
		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, ErrorHTTP, upstream.Category)
		assert.Equal(t, http.StatusBadGateway, upstream.Status)
	})

	t.Run("missing bib yields an empty record", func(t *testing.T) {
		body := `{"resource":"/catalog/bib","key":"111","fields":{}}`
		client := newTestClient(func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, body, len(body)+FramingOverhead), nil
		})

		bib, err := client.FetchBib(context.Background(), "111")
		require.NoError(t, err)
		assert.Nil(t, bib.Leader)
		assert.Empty(t, bib.Fields)
	})

	t.Run("timeout is distinguishable and not retried", func(t *testing.T) {
		calls := 0
		client := newTestClient(func(r *http.Request) (*http.Response, error) {
			calls++
			<-r.Context().Done()
			return nil, r.Context().Err()
		})
		client.timeout = 10 * time.Millisecond

		_, err := client.FetchBib(context.Background(), "111")
		require.Error(t, err)
		assert.True(t, IsUnavailable(err))
		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, ErrorTimeout, upstream.Category)
		assert.Equal(t, 1, calls)
	})

	t.Run("transport failure is an outage", func(t *testing.T) {
		client := newTestClient(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		})

		_, err := client.FetchBib(context.Background(), "111")
		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, ErrorProviderOutage, upstream.Category)
		assert.True(t, IsUnavailable(err))
	})
}

func TestFetchBib_BreakerFailsFast(t *testing.T) {
	calls := 0
	breaker := circuit.New("symphony", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	client := newTestClient(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("connection reset")
	}, WithBreaker(breaker))

	for range 2 {
		_, err := client.FetchBib(context.Background(), "111")
		require.Error(t, err)
	}
	require.True(t, breaker.IsOpen())

	_, err := client.FetchBib(context.Background(), "111")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Equal(t, 2, calls)
}

func TestResolveBarcode(t *testing.T) {
	t.Run("returns the catkey", func(t *testing.T) {
		var path string
		client := newTestClient(func(r *http.Request) (*http.Response, error) {
			path = r.URL.Path
			return jsonResponse(http.StatusOK, `{"id":"111"}`, -1), nil
		})

		catkey, err := client.ResolveBarcode(context.Background(), "36105010101010")
		require.NoError(t, err)
		assert.Equal(t, "111", catkey)
		assert.Equal(t, "/barcode/36105010101010", path)
	})

	t.Run("empty id is not found", func(t *testing.T) {
		client := newTestClient(func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"id":""}`, -1), nil
		})

		_, err := client.ResolveBarcode(context.Background(), "nope")
		assert.True(t, IsNotFound(err))
	})
}

func TestFetchByBarcode(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		if strings.HasPrefix(r.URL.Path, "/barcode/") {
			return jsonResponse(http.StatusOK, `{"id":"111"}`, -1), nil
		}
		return jsonResponse(http.StatusOK, bibBody, len(bibBody)+FramingOverhead), nil
	})

	catkey, bib, err := client.FetchByBarcode(context.Background(), "36105010101010")
	require.NoError(t, err)
	assert.Equal(t, "111", catkey)
	assert.Len(t, bib.Fields, 2)
}

func TestIndicators_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Indicators
		wantErr bool
	}{
		{"string", `"41"`, Indicators{"4", "1"}, false},
		{"blank string", `"  "`, Indicators{" ", " "}, false},
		{"short string", `"0"`, Indicators{"0", ""}, false},
		{"array", `["1", " "]`, Indicators{"1", " "}, false},
		{"array with null", `[null, "4"]`, Indicators{"", "4"}, false},
		{"null", `null`, Indicators{}, false},
		{"too long", `"123"`, Indicators{}, true},
		{"wrong type", `12`, Indicators{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Indicators
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, " ", Indicators{}.First())
	assert.Equal(t, "4", Indicators{"", "4"}.Second())
}

func TestRawField_Equal(t *testing.T) {
	a := RawField{Tag: "650", Inds: Indicators{" ", "0"}, Subfields: []RawSubfield{{Code: "a", Data: "Maps"}}}
	b := RawField{Tag: "650", Inds: Indicators{" ", "0"}, Subfields: []RawSubfield{{Code: "a", Data: "Maps"}}}
	c := RawField{Tag: "650", Inds: Indicators{" ", "0"}, Subfields: []RawSubfield{{Code: "a", Data: "Atlases"}}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

// serveOnce answers a single request on a raw socket with body and the given
// Content-Length header, then closes the connection.
func serveOnce(t *testing.T, body string, declared int) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if _, err := http.ReadRequest(bufio.NewReader(conn)); err != nil {
			return
		}
		_, _ = fmt.Fprintf(conn, "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s", declared, body)
	}()
	return ln.Addr().String()
}

func TestFetchBib_OverTCP(t *testing.T) {
	tests := []struct {
		name     string
		declared int
		wantErr  bool
	}{
		{name: "declared length five over the body succeeds", declared: len(bibBody) + FramingOverhead},
		{name: "declared length equal to the body is incomplete", declared: len(bibBody), wantErr: true},
		{name: "declared length under the body is incomplete", declared: len(bibBody) - FramingOverhead, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := serveOnce(t, bibBody, tt.declared)
			cfg := testConfig()
			cfg.JSONURL = "http://" + addr + "/symws/catalog/bib/key/{catkey}"
			client := New(cfg, WithHTTPClient(&http.Client{}))

			bib, err := client.FetchBib(context.Background(), "111")
			if !tt.wantErr {
				require.NoError(t, err)
				require.NotNil(t, bib.Leader)
				assert.Len(t, bib.Fields, 2)
				return
			}
			var incomplete *RecordIncompleteError
			require.ErrorAs(t, err, &incomplete)
			assert.Equal(t, int64(tt.declared), incomplete.Declared)
		})
	}
}
