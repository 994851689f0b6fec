// Package archive unpacks module packages into a staging directory.
//
// Formats are sniffed from content, not file names: zip (and zip-based
// containers), tar, tar.gz and tar.zst. Entries that would land outside the
// destination abort extraction with ErrUnsafePath. Archiver litter such as
// __MACOSX/ and .DS_Store is skipped.
package archive
