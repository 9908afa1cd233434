// Package repoconfig reads the INI file that lists managed repositories and
// turns its sections into repository settings.
//
// The file has an optional [repos] section with "list" and "logfile" keys, one
// [repo:<name>] section per repository, and an optional [DEFAULT] section whose
// keys apply to every repository.
package repoconfig
