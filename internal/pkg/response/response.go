package response

// Response is the envelope every API handler returns. Results carries the
// payload on success; Detail carries a human-readable explanation on failure
// (and stays empty otherwise) so the payload remains machine-parseable even
// when diagnostics are present.
type Response struct {
	Results interface{} `json:"results"`
	Detail  string      `json:"detail"`
}
