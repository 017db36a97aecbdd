// list shows the tabs gridsearch can target
package list

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/nathants/gridsearch/lib"
)

func init() {
	lib.Commands["list"] = list
	lib.Args["list"] = listArgs{}
}

type listArgs struct {
}

func (listArgs) Description() string {
	return `list - List Chrome tabs

Lists the page tabs of the Chrome listening on CHROME_URL (default
http://localhost:9222). The tab marked * is the one gridsearch uses when
no -t is given.

Example:
  gridsearch list
  gridsearch search -t https://mdbootstrap.com --locators mdb.yaml "Prescott Bartlett"`
}

func list() {
	var args listArgs
	arg.MustParse(&args)

	if err := lib.ListTabs(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
