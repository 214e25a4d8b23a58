package render

import (
	"strings"

	"resume-builder/resume/model"
)

// BlockKind tells an emitter how to draw a block.
type BlockKind int

const (
	BlockName BlockKind = iota
	BlockContact
	BlockLinks
	BlockHeading
	BlockTitle
	BlockSubtitle
	BlockText
	BlockBullet
	BlockInline
	BlockGap
)

// Segment is a run of text inside a block. Bold segments are emphasized
// within an otherwise regular line.
type Segment struct {
	Text string
	Bold bool
}

// Block is one line or paragraph of output.
type Block struct {
	Kind     BlockKind
	Segments []Segment
}

// Text returns the concatenated segment text.
func (b Block) Text() string {
	var sb strings.Builder
	for _, s := range b.Segments {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Document is the format-agnostic layout of a resume.
type Document struct {
	Title    string
	Author   string
	Template model.Template
	Blocks   []Block
}

// Headings lists section headings in emission order.
func (d Document) Headings() []string {
	var out []string
	for _, b := range d.Blocks {
		if b.Kind == BlockHeading {
			out = append(out, b.Text())
		}
	}
	return out
}

const (
	HeadingSummary        = "Professional Summary"
	HeadingExperience     = "Work Experience"
	HeadingEducation      = "Education"
	HeadingSkills         = "Skills"
	HeadingProjects       = "Projects"
	HeadingCertifications = "Certifications"
	HeadingLanguages      = "Languages"

	listSeparator  = " • "
	fieldSeparator = " | "
)

// BuildDocument lays out a resume in the fixed section order. Sections whose
// backing data is empty produce no output at all.
func BuildDocument(r model.Resume) Document {
	b := &builder{}
	info := r.PersonalInfo

	if name := model.Value(info.FullName); name != "" {
		b.add(BlockName, plain(name))
	}
	if contact := joinPresent(fieldSeparator, model.Value(info.Email), model.Value(info.Phone), model.Value(info.Address)); contact != "" {
		b.add(BlockContact, plain(contact))
	}
	links := joinPresent(fieldSeparator,
		labelled("LinkedIn", model.Value(info.LinkedIn)),
		labelled("Portfolio", model.Value(info.Portfolio)),
		labelled("GitHub", model.Value(info.GitHub)),
	)
	if links != "" {
		b.add(BlockLinks, plain(links))
	}

	if summary := model.Value(info.Summary); summary != "" {
		b.heading(HeadingSummary)
		b.add(BlockText, plain(summary))
	}

	if len(r.Experience) > 0 {
		b.heading(HeadingExperience)
		for _, exp := range r.Experience {
			b.add(BlockTitle, Segment{Text: exp.Position + " at " + exp.Company, Bold: true})
			if sub := experienceSubtitle(exp); sub != "" {
				b.add(BlockSubtitle, plain(sub))
			}
			if desc := model.Value(exp.Description); desc != "" {
				b.add(BlockText, plain(desc))
			}
			for _, a := range exp.Achievements {
				if a = strings.TrimSpace(a); a != "" {
					b.add(BlockBullet, plain("• "+a))
				}
			}
			b.gap()
		}
	}

	if len(r.Education) > 0 {
		b.heading(HeadingEducation)
		for _, edu := range r.Education {
			b.add(BlockTitle, Segment{Text: edu.Institution, Bold: true})
			degree := edu.Degree
			if field := model.Value(edu.Field); field != "" {
				degree += " in " + field
			}
			if degree != "" {
				b.add(BlockText, plain(degree))
			}
			sub := DateRange(edu.StartDate, edu.EndDate, false)
			if grade := model.Value(edu.Grade); grade != "" {
				sub = joinPresent(fieldSeparator, sub, "Grade: "+grade)
			}
			if sub != "" {
				b.add(BlockSubtitle, plain(sub))
			}
			if desc := model.Value(edu.Description); desc != "" {
				b.add(BlockText, plain(desc))
			}
			b.gap()
		}
	}

	if len(r.Skills) > 0 {
		b.heading(HeadingSkills)
		items := make([]string, 0, len(r.Skills))
		for _, s := range r.Skills {
			items = append(items, withQualifier(s.Name, string(s.Level)))
		}
		b.add(BlockInline, plain(strings.Join(items, listSeparator)))
	}

	if len(r.Projects) > 0 {
		b.heading(HeadingProjects)
		for _, p := range r.Projects {
			b.add(BlockTitle, Segment{Text: p.Name, Bold: true})
			if len(p.Technologies) > 0 {
				b.add(BlockSubtitle, plain("Technologies: "+strings.Join(p.Technologies, ", ")))
			}
			if desc := model.Value(p.Description); desc != "" {
				b.add(BlockText, plain(desc))
			}
			refs := joinPresent(fieldSeparator, labelled("Demo", model.Value(p.Link)), labelled("Code", model.Value(p.GitHub)))
			if refs != "" {
				b.add(BlockLinks, plain(refs))
			}
			b.gap()
		}
	}

	if len(r.Certifications) > 0 {
		b.heading(HeadingCertifications)
		for _, c := range r.Certifications {
			segments := []Segment{{Text: c.Name, Bold: true}}
			if issuer := model.Value(c.Issuer); issuer != "" {
				segments = append(segments, plain(" - "+issuer))
			}
			b.add(BlockTitle, segments...)
			dates := FormatMonthYear(c.Date)
			if expires := FormatMonthYear(c.ExpiryDate); expires != "" {
				dates = joinPresent(fieldSeparator, dates, "Expires "+expires)
			}
			if dates != "" {
				b.add(BlockSubtitle, plain(dates))
			}
			if id := model.Value(c.CredentialID); id != "" {
				b.add(BlockSubtitle, plain("Credential ID: "+id))
			}
			if link := model.Value(c.Link); link != "" {
				b.add(BlockLinks, plain(link))
			}
			b.gap()
		}
	}

	if len(r.Languages) > 0 {
		b.heading(HeadingLanguages)
		items := make([]string, 0, len(r.Languages))
		for _, l := range r.Languages {
			items = append(items, withQualifier(l.Name, string(l.Proficiency)))
		}
		b.add(BlockInline, plain(strings.Join(items, listSeparator)))
	}

	author := model.Value(info.FullName)
	return Document{
		Title:    r.Title,
		Author:   author,
		Template: r.Template,
		Blocks:   b.blocks,
	}
}

func experienceSubtitle(exp model.Experience) string {
	dates := DateRange(exp.StartDate, exp.EndDate, exp.Current)
	return joinPresent(fieldSeparator, model.Value(exp.Location), dates)
}

type builder struct {
	blocks []Block
}

func (b *builder) add(kind BlockKind, segments ...Segment) {
	b.blocks = append(b.blocks, Block{Kind: kind, Segments: segments})
}

func (b *builder) heading(name string) {
	b.add(BlockHeading, plain(strings.ToUpper(name)))
}

func (b *builder) gap() {
	b.add(BlockGap)
}

func plain(text string) Segment {
	return Segment{Text: text}
}

func labelled(label, value string) string {
	if value == "" {
		return ""
	}
	return label + ": " + value
}

func withQualifier(name, qualifier string) string {
	if qualifier == "" {
		return name
	}
	return name + " (" + qualifier + ")"
}

func joinPresent(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
