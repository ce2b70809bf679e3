// Package nfo edits Kodi/Jellyfin/Emby NFO sidecars in place.
//
// A Document keeps the sidecar's original text and only splices new <tag>
// children in front of the root's closing element, so comments, attributes,
// unrelated elements and their order survive a rewrite unchanged. Sidecars in
// a non-UTF-8 encoding (declared in the XML prolog or signalled by a BOM) are
// decoded on parse and always rendered as UTF-8.
package nfo
