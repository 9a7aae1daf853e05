package bible

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnknownBook       = errors.New("unknown book")
	ErrInvalidReference  = errors.New("invalid passage reference")
	referencePattern     = regexp.MustCompile(`^(.+?)\s+(\d+)(?:[:.](\d+))?(?:-(\d+))?$`)
	referenceBookPattern = regexp.MustCompile(`^(.+?)\s+\d+`)
)

type Testament int

const (
	OldTestament Testament = iota + 1
	NewTestament
)

// Book is one canonical book. Code is the USFM id used by API.Bible.
type Book struct {
	Code      string
	Name      string
	Chapters  int
	Testament Testament
	aliases   []string
}

var books = []Book{
	{"GEN", "Genesis", 50, OldTestament, []string{"gen"}},
	{"EXO", "Exodus", 40, OldTestament, []string{"exo", "ex"}},
	{"LEV", "Leviticus", 27, OldTestament, []string{"lev"}},
	{"NUM", "Numbers", 36, OldTestament, []string{"num"}},
	{"DEU", "Deuteronomy", 34, OldTestament, []string{"deut", "dt"}},
	{"JOS", "Joshua", 24, OldTestament, []string{"josh"}},
	{"JDG", "Judges", 21, OldTestament, []string{"judg"}},
	{"RUT", "Ruth", 4, OldTestament, []string{"rut"}},
	{"1SA", "1 Samuel", 31, OldTestament, []string{"1 sam"}},
	{"2SA", "2 Samuel", 24, OldTestament, []string{"2 sam"}},
	{"1KI", "1 Kings", 22, OldTestament, []string{"1 kgs"}},
	{"2KI", "2 Kings", 25, OldTestament, []string{"2 kgs"}},
	{"1CH", "1 Chronicles", 29, OldTestament, []string{"1 chron", "1 chr"}},
	{"2CH", "2 Chronicles", 36, OldTestament, []string{"2 chron", "2 chr"}},
	{"EZR", "Ezra", 10, OldTestament, nil},
	{"NEH", "Nehemiah", 13, OldTestament, []string{"neh"}},
	{"EST", "Esther", 10, OldTestament, []string{"esth"}},
	{"JOB", "Job", 42, OldTestament, nil},
	{"PSA", "Psalms", 150, OldTestament, []string{"psalm", "ps"}},
	{"PRO", "Proverbs", 31, OldTestament, []string{"prov"}},
	{"ECC", "Ecclesiastes", 12, OldTestament, []string{"eccl"}},
	{"SNG", "Song of Songs", 8, OldTestament, []string{"song", "song of solomon"}},
	{"ISA", "Isaiah", 66, OldTestament, []string{"isa"}},
	{"JER", "Jeremiah", 52, OldTestament, []string{"jer"}},
	{"LAM", "Lamentations", 5, OldTestament, []string{"lam"}},
	{"EZK", "Ezekiel", 48, OldTestament, []string{"ezek"}},
	{"DAN", "Daniel", 12, OldTestament, []string{"dan"}},
	{"HOS", "Hosea", 14, OldTestament, []string{"hos"}},
	{"JOL", "Joel", 3, OldTestament, nil},
	{"AMO", "Amos", 9, OldTestament, nil},
	{"OBA", "Obadiah", 1, OldTestament, []string{"obad"}},
	{"JON", "Jonah", 4, OldTestament, nil},
	{"MIC", "Micah", 7, OldTestament, nil},
	{"NAM", "Nahum", 3, OldTestament, []string{"nah"}},
	{"HAB", "Habakkuk", 3, OldTestament, []string{"hab"}},
	{"ZEP", "Zephaniah", 3, OldTestament, []string{"zeph"}},
	{"HAG", "Haggai", 2, OldTestament, []string{"hag"}},
	{"ZEC", "Zechariah", 14, OldTestament, []string{"zech"}},
	{"MAL", "Malachi", 4, OldTestament, []string{"mal"}},

	{"MAT", "Matthew", 28, NewTestament, []string{"matt", "mt"}},
	{"MRK", "Mark", 16, NewTestament, []string{"mk"}},
	{"LUK", "Luke", 24, NewTestament, []string{"lk"}},
	{"JHN", "John", 21, NewTestament, []string{"jn"}},
	{"ACT", "Acts", 28, NewTestament, nil},
	{"ROM", "Romans", 16, NewTestament, []string{"rom"}},
	{"1CO", "1 Corinthians", 16, NewTestament, []string{"1 cor"}},
	{"2CO", "2 Corinthians", 13, NewTestament, []string{"2 cor"}},
	{"GAL", "Galatians", 6, NewTestament, []string{"gal"}},
	{"EPH", "Ephesians", 6, NewTestament, []string{"eph"}},
	{"PHP", "Philippians", 4, NewTestament, []string{"phil"}},
	{"COL", "Colossians", 4, NewTestament, []string{"col"}},
	{"1TH", "1 Thessalonians", 5, NewTestament, []string{"1 thess"}},
	{"2TH", "2 Thessalonians", 3, NewTestament, []string{"2 thess"}},
	{"1TI", "1 Timothy", 6, NewTestament, []string{"1 tim"}},
	{"2TI", "2 Timothy", 4, NewTestament, []string{"2 tim"}},
	{"TIT", "Titus", 3, NewTestament, []string{"tit"}},
	{"PHM", "Philemon", 1, NewTestament, nil},
	{"HEB", "Hebrews", 13, NewTestament, []string{"heb"}},
	{"JAS", "James", 5, NewTestament, []string{"jas"}},
	{"1PE", "1 Peter", 5, NewTestament, []string{"1 pet"}},
	{"2PE", "2 Peter", 3, NewTestament, []string{"2 pet"}},
	{"1JN", "1 John", 5, NewTestament, nil},
	{"2JN", "2 John", 1, NewTestament, nil},
	{"3JN", "3 John", 1, NewTestament, nil},
	{"JUD", "Jude", 1, NewTestament, []string{"jud"}},
	{"REV", "Revelation", 22, NewTestament, []string{"rev"}},
}

// bookIndex maps every lowercase alias, full name and code to its book.
var bookIndex = func() map[string]*Book {
	idx := make(map[string]*Book, len(books)*4)
	for i := range books {
		b := &books[i]
		idx[strings.ToLower(b.Name)] = b
		idx[strings.ToLower(b.Code)] = b
		for _, a := range b.aliases {
			idx[a] = b
		}
	}
	return idx
}()

// Books returns the canonical books of one testament in canonical order.
func Books(t Testament) []Book {
	var out []Book
	for _, b := range books {
		if b.Testament == t {
			out = append(out, b)
		}
	}
	return out
}

// LookupBook resolves a book name or abbreviation, ignoring case, extra
// spaces and a trailing period.
func LookupBook(name string) (Book, error) {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	key = strings.TrimSuffix(key, ".")
	if b, ok := bookIndex[key]; ok {
		return *b, nil
	}
	return Book{}, errors.Wrapf(ErrUnknownBook, "%q", name)
}

// Reference is a parsed passage. Verse is zero for whole chapters and
// EndChapter is zero unless the reference spans several chapters.
type Reference struct {
	Book       Book
	Chapter    int
	EndChapter int
	Verse      int
	EndVerse   int
}

// ParseReference parses "<book> <chapter>[:<verse>[-<endVerse>]]" and the
// chapter range form "<book> <chapter>-<endChapter>".
func ParseReference(s string) (Reference, error) {
	m := referencePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Reference{}, errors.Wrapf(ErrInvalidReference, "%q", s)
	}
	book, err := LookupBook(m[1])
	if err != nil {
		return Reference{}, err
	}
	ref := Reference{Book: book}
	ref.Chapter, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		ref.Verse, _ = strconv.Atoi(m[3])
		if m[4] != "" {
			ref.EndVerse, _ = strconv.Atoi(m[4])
		}
	} else if m[4] != "" {
		ref.EndChapter, _ = strconv.Atoi(m[4])
	}

	switch {
	case ref.Chapter < 1 || ref.Chapter > book.Chapters:
		return Reference{}, errors.Wrapf(ErrInvalidReference, "%q: %s has %d chapters", s, book.Name, book.Chapters)
	case ref.EndChapter != 0 && (ref.EndChapter < ref.Chapter || ref.EndChapter > book.Chapters):
		return Reference{}, errors.Wrapf(ErrInvalidReference, "%q: bad chapter range", s)
	case m[3] != "" && ref.Verse < 1:
		return Reference{}, errors.Wrapf(ErrInvalidReference, "%q: bad verse", s)
	case ref.EndVerse != 0 && ref.EndVerse < ref.Verse:
		return Reference{}, errors.Wrapf(ErrInvalidReference, "%q: bad verse range", s)
	}
	if ref.EndChapter == ref.Chapter {
		ref.EndChapter = 0
	}
	if ref.EndVerse == ref.Verse {
		ref.EndVerse = 0
	}
	return ref, nil
}

// ChapterCount is the number of chapters the reference touches.
func (r Reference) ChapterCount() int {
	if r.EndChapter == 0 {
		return 1
	}
	return r.EndChapter - r.Chapter + 1
}

// ProviderID renders the reference as an API.Bible passage id, e.g.
// JHN.3.16-JHN.3.18 or 1JN.1-1JN.5.
func (r Reference) ProviderID() string {
	c := r.Book.Code
	switch {
	case r.Verse != 0 && r.EndVerse != 0:
		return fmt.Sprintf("%s.%d.%d-%s.%d.%d", c, r.Chapter, r.Verse, c, r.Chapter, r.EndVerse)
	case r.Verse != 0:
		return fmt.Sprintf("%s.%d.%d", c, r.Chapter, r.Verse)
	case r.EndChapter != 0:
		return fmt.Sprintf("%s.%d-%s.%d", c, r.Chapter, c, r.EndChapter)
	default:
		return fmt.Sprintf("%s.%d", c, r.Chapter)
	}
}

func (r Reference) String() string {
	switch {
	case r.Verse != 0 && r.EndVerse != 0:
		return fmt.Sprintf("%s %d:%d-%d", r.Book.Name, r.Chapter, r.Verse, r.EndVerse)
	case r.Verse != 0:
		return fmt.Sprintf("%s %d:%d", r.Book.Name, r.Chapter, r.Verse)
	case r.EndChapter != 0:
		return fmt.Sprintf("%s %d-%d", r.Book.Name, r.Chapter, r.EndChapter)
	default:
		return fmt.Sprintf("%s %d", r.Book.Name, r.Chapter)
	}
}

// FormatReference joins passages for display, folding runs of the same book
// into one entry: "John 3:16, 3:18; Romans 8".
func FormatReference(passages []string) string {
	if len(passages) == 1 {
		return passages[0]
	}
	var groups []string
	var book string
	var run []string
	flush := func() {
		if len(run) == 0 {
			return
		}
		if len(run) == 1 {
			groups = append(groups, book+" "+run[0])
		} else {
			groups = append(groups, book+" "+strings.Join(run, ", "))
		}
		run = nil
	}
	for _, p := range passages {
		p = strings.TrimSpace(p)
		m := referenceBookPattern.FindStringSubmatch(p)
		if m == nil {
			flush()
			book = ""
			groups = append(groups, p)
			continue
		}
		if m[1] != book {
			flush()
			book = m[1]
		}
		run = append(run, strings.TrimSpace(strings.TrimPrefix(p, m[1])))
	}
	flush()
	return strings.Join(groups, "; ")
}
