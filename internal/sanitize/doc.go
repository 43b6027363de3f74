// Package sanitize is the single gate between untrusted rich text and anything that renders it.
//
// Terms and disclaimer content, plan descriptions and any URL taken from an operator or the backend pass through
// here before they reach a terminal, an HTML page or an exported report. Content round-tripped from the admin
// API is treated as untrusted too.
//
// # Policy
//
// [HTML] keeps a small allow-list of formatting tags (paragraphs, line breaks, strong/em/u emphasis, h1-h6,
// lists, anchors, blockquote, code, pre) and the attributes href (anchors only), title, alt and class. URL-bearing
// attributes must use a non-executable scheme (http, https, mailto, tel, callto, sms, cid, xmpp) or be relative.
// An offending attribute is dropped while its element and text survive. Script and style bodies are removed.
//
// [URL] validates a standalone URL: it must parse against a base origin with an http or https scheme and must
// come back from the allow-list unchanged, otherwise the result is empty.
//
// # Failure semantics
//
// Nothing in this package returns an error or panics on input. Malformed or unsafe content degrades to less
// content, never to unsanitized content.
//
// # Rendering
//
// [Trusted] is the only function in the module that produces [html/template.HTML]. Templates and handlers that
// need to emit markup call it instead of converting strings themselves.
package sanitize
