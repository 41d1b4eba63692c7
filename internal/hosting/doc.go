// Package hosting reads project metadata from code-hosting services. GitHub is reached through
// go-github over an OAuth2 token transport; GitLab through its REST v4 API with retries. The
// package also resolves the access tokens both services require.
package hosting
