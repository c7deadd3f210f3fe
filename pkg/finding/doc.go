// Package finding holds the severity and confidence scales shared by the
// analysis panels (JWT, CORS, headers, technology detection).
package finding
