package publicsuffix

// curatedSuffixList is a reduced extract from the public suffix list
// (https://publicsuffix.org/list/), covering the generic TLDs and the
// multi-label ccTLD suffixes most commonly seen in DKIM signing domains.
// It is not a full mirror of the published list; the full list is a
// multi-megabyte data file that isn't available in this build, so this
// curated set stands in for it.
const curatedSuffixList = `
// ===BEGIN ICANN DOMAINS===

com
net
org
info
biz
name
pro
mobi
dev
app
io
co
me
tv
xyz
online
site
tech
cloud
email
gov
edu
mil
int

// United Kingdom
uk
co.uk
org.uk
me.uk
ac.uk
gov.uk
net.uk
sch.uk

// Australia
au
com.au
net.au
org.au
edu.au
gov.au
asn.au
id.au

// Japan
jp
co.jp
ne.jp
or.jp
ac.jp
go.jp
gr.jp

// Brazil
br
com.br
net.br
org.br
gov.br

// China
cn
com.cn
net.cn
org.cn
gov.cn

// India
in
co.in
net.in
org.in
gov.in
ac.in

// Germany
de

// France
fr

// Netherlands
nl

// Russia
ru

// South Africa
za
co.za
org.za
gov.za
net.za

// New Zealand
nz
co.nz
net.nz
org.nz
govt.nz
ac.nz

// Canada
ca

// United States
us

// ===END ICANN DOMAINS===
`
