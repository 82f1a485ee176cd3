// Package script defines the userscript record stored by the engine and the
// two transformations applied to it: parsing the "==UserScript==" metadata
// block of an installed source, and the one-time encoding that turns that
// source into the expression delivered to the page.
//
// A Script is keyed by its ID, derived from the metadata namespace and name
// ("namespace:name", NFC normalized). Installing a source with the same
// namespace and name replaces the previous record.
//
// Encoding is lazy: a freshly parsed Script has Encoded=false and its Code is
// the raw source. The first time the script is injected the engine calls
// Encode, stores the result with Encoded=true, and never encodes it again.
package script
