package core

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// WordlistType selects one of the built-in lists.
type WordlistType string

const (
	WordlistDirectories WordlistType = "directories"
	WordlistFiles       WordlistType = "files"
	WordlistBackups     WordlistType = "backups"
)

var builtinWordlists = map[WordlistType][]string{
	WordlistDirectories: {
		"admin", "administrator", "api", "assets", "backup", "backups", "bin", "blog", "cache",
		"cgi-bin", "config", "content", "css", "data", "db", "debug", "dev", "docs", "download",
		"downloads", "files", "forum", "home", "images", "img", "inc", "include", "includes",
		"install", "js", "lib", "log", "logs", "media", "modules", "old", "private", "public",
		"scripts", "search", "secure", "shop", "static", "system", "temp", "templates", "test",
		"tmp", "upload", "uploads", "user", "users", "web", "wp-admin", "wp-content",
	},
	WordlistFiles: {
		"robots.txt", "sitemap.xml", ".htaccess", "web.config", "index", "login", "admin",
		"config", "database", "phpinfo", "info", "test", "debug", "error.log", "readme.txt",
		"changelog.txt", "server-status", "crossdomain.xml", ".env", ".git/HEAD",
	},
	WordlistBackups: {
		"backup.zip", "backup.tar.gz", "site.zip", "www.zip", "dump.sql", "database.sql",
		"db.sql", "config.php.bak", "index.php.bak", "web.config.old", ".DS_Store",
	},
}

// BuiltinWordlist returns a copy of the named built-in list.
func BuiltinWordlist(t WordlistType) ([]string, error) {
	words, ok := builtinWordlists[t]
	if !ok {
		return nil, fmt.Errorf("unknown wordlist %q", t)
	}
	return append([]string(nil), words...), nil
}

// WordlistTypes lists the built-in list names.
func WordlistTypes() []string {
	names := make([]string, 0, len(builtinWordlists))
	for t := range builtinWordlists {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}

// LoadWordlist reads one entry per line, skipping blanks and '#' comments.
// Duplicates keep their first position.
func LoadWordlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return removeDuplicates(words), nil
}

// ResolveWordlist accepts a built-in list name or a file path. An empty
// source means the directory and file lists together.
func ResolveWordlist(source string) ([]string, error) {
	if source == "" {
		dirs, _ := BuiltinWordlist(WordlistDirectories)
		files, _ := BuiltinWordlist(WordlistFiles)
		return removeDuplicates(append(dirs, files...)), nil
	}
	if words, err := BuiltinWordlist(WordlistType(source)); err == nil {
		return words, nil
	}
	return LoadWordlist(source)
}

// ExpandWordlist returns every word as is, then once per extension for words
// without one. Extensions may be given with or without the leading dot.
func ExpandWordlist(words, extensions []string) []string {
	out := make([]string, 0, len(words)*(len(extensions)+1))
	for _, w := range words {
		out = append(out, w)
		if strings.Contains(w, ".") || strings.HasSuffix(w, "/") {
			continue
		}
		for _, ext := range extensions {
			ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
			if ext != "" {
				out = append(out, w+"."+ext)
			}
		}
	}
	return removeDuplicates(out)
}

func removeDuplicates(slice []string) []string {
	seen := make(map[string]bool, len(slice))
	var result []string
	for _, item := range slice {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}
