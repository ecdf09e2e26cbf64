package humastar

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// EntryPath is the operation every collection links up to.
const EntryPath = "/health"

// Links holds the RFC 8288 Link headers generated from an API's routes,
// keyed by operation path. The zero value is empty; Build fills it once
// every route is registered, so Transformer can be installed on the API
// config before that.
type Links struct {
	byPath map[string][]string
}

// Build walks the OpenAPI paths of api, skipping operations tagged with
// one of skipTags (Datastar streams), and links:
//   - items to their parent path (rel="collection" and "up"),
//   - collections to their item templates (rel="item") and to EntryPath,
//   - collections sharing a tag to each other, by last path segment,
//   - EntryPath to every collection and the OpenAPI description,
//   - editable items to themselves (rel="edit").
//
// The links are also recorded on each operation's 2xx OpenAPI response.
func (l *Links) Build(api huma.API, skipTags ...string) {
	oapi := api.OpenAPI()
	l.byPath = map[string][]string{}

	type pathInfo struct {
		path string
		tags []string
	}
	var collections, items []pathInfo
	for p, pi := range oapi.Paths {
		tags := primaryTags(pi)
		if slices.ContainsFunc(tags, func(t string) bool { return slices.Contains(skipTags, t) }) {
			continue
		}
		if strings.Contains(p, "{") {
			items = append(items, pathInfo{p, tags})
		} else {
			collections = append(collections, pathInfo{p, tags})
		}
	}
	slices.SortFunc(collections, func(a, b pathInfo) int { return strings.Compare(a.path, b.path) })
	slices.SortFunc(items, func(a, b pathInfo) int { return strings.Compare(a.path, b.path) })

	for _, item := range items {
		parent := path.Dir(item.path)
		if _, ok := oapi.Paths[parent]; ok {
			l.add(item.path, parent, "collection")
			l.add(item.path, parent, "up")
		}
		if pi := oapi.Paths[item.path]; pi.Put != nil || pi.Patch != nil {
			l.add(item.path, item.path, "edit")
		}
	}
	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item.path) == coll.path {
				l.add(coll.path, item.path, "item")
			}
		}
		if coll.path != EntryPath {
			l.add(coll.path, EntryPath, "up")
			l.add(EntryPath, coll.path, lastSegment(coll.path))
		}
	}
	for i, a := range collections {
		for j, b := range collections {
			if i != j && sharedTag(a.tags, b.tags) {
				l.add(a.path, b.path, lastSegment(b.path))
			}
		}
	}
	l.add(EntryPath, "/openapi.json", "describedby")
	l.add(EntryPath, "/docs", "service-doc")

	for p, pi := range oapi.Paths {
		for _, op := range []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete} {
			if op != nil {
				injectResponseLinks(op, l.byPath[p])
			}
		}
	}
}

// For returns the Link header values generated for an operation path.
func (l *Links) For(opPath string) []string {
	return l.byPath[opPath]
}

// Transformer returns a Huma Transformer that writes the generated links,
// a self link for templated paths and the actions of [Actor] bodies.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}
		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}
		return v, nil
	}
}

func (l *Links) add(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	if !slices.Contains(l.byPath[from], val) {
		l.byPath[from] = append(l.byPath[from], val)
	}
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete} {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func sharedTag(a, b []string) bool {
	return slices.ContainsFunc(a, func(t string) bool { return slices.Contains(b, t) })
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}

// injectResponseLinks documents headers as OpenAPI Link objects on the
// operation's success response.
func injectResponseLinks(op *huma.Operation, headers []string) {
	if len(headers) == 0 || op.Responses == nil {
		return
	}
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLinkHeader(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  fmt.Sprintf("Related: %s", rel),
		}
	}
}

// parseLinkHeader splits `<url>; rel="name"`.
func parseLinkHeader(h string) (rel, href string) {
	target, params, ok := strings.Cut(h, ";")
	if !ok {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(target), "<>")
	params = strings.TrimSpace(params)
	if strings.HasPrefix(params, `rel="`) {
		rel = strings.Trim(params[4:], `"`)
	}
	return rel, href
}
